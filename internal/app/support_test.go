package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"second_saturday/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

// fixedClock pins Now() so deadline-sensitive behavior is testable at
// arbitrary instants.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func clockAt(t time.Time) *fixedClock { return &fixedClock{t: t} }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeStore records deletions and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{failOn: make(map[string]bool)}
}

func (s *fakeStore) URL(ctx context.Context, ref string) (string, error) {
	return "https://store.test/objects/" + ref, nil
}

func (s *fakeStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[ref] {
		return fmt.Errorf("storage unavailable")
	}
	s.deleted = append(s.deleted, ref)
	return nil
}

// fakeEmailSender records sent emails; failTo addresses fail.
type fakeEmailSender struct {
	mu     sync.Mutex
	sent   []notify.Email
	failTo map[string]bool
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{failTo: make(map[string]bool)}
}

func (s *fakeEmailSender) Send(ctx context.Context, e notify.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTo[e.To] {
		return fmt.Errorf("delivery refused")
	}
	s.sent = append(s.sent, e)
	return nil
}

// fakePushSender records push batches.
type fakePushSender struct {
	mu   sync.Mutex
	sent []notify.Push
}

func newFakePushSender() *fakePushSender { return &fakePushSender{} }

func (s *fakePushSender) Send(ctx context.Context, p notify.Push) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, p)
	return nil
}
