package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"second_saturday/internal/domain/newsletter"
)

type NewsletterRepository struct {
	mu          sync.Mutex
	nextID      int64
	newsletters map[int64]newsletter.Newsletter
	reads       map[int64]newsletter.Read
}

func NewNewsletterRepository() *NewsletterRepository {
	return &NewsletterRepository{
		nextID:      1,
		newsletters: make(map[int64]newsletter.Newsletter),
		reads:       make(map[int64]newsletter.Read),
	}
}

func (r *NewsletterRepository) id() int64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *NewsletterRepository) Create(ctx context.Context, n *newsletter.Newsletter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.newsletters {
		if existing.CircleID == n.CircleID && existing.CycleID == n.CycleID {
			return newsletter.ErrDuplicate
		}
	}
	n.ID = r.id()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.newsletters[n.ID] = *n
	return nil
}

func (r *NewsletterRepository) GetByID(ctx context.Context, id int64) (*newsletter.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.newsletters[id]
	if !ok {
		return nil, newsletter.ErrNotFound
	}
	return &n, nil
}

func (r *NewsletterRepository) GetByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) (*newsletter.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.newsletters {
		if n.CircleID == circleID && n.CycleID == cycleID {
			n := n
			return &n, nil
		}
	}
	return nil, newsletter.ErrNotFound
}

func (r *NewsletterRepository) CountByCircle(ctx context.Context, circleID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.newsletters {
		if n.CircleID == circleID {
			count++
		}
	}
	return count, nil
}

func (r *NewsletterRepository) ListByCircle(ctx context.Context, circleID int64) ([]*newsletter.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*newsletter.Newsletter, 0)
	for _, n := range r.newsletters {
		if n.CircleID == circleID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueNumber > out[j].IssueNumber })
	return out, nil
}

func (r *NewsletterRepository) SetRecipientCount(ctx context.Context, id int64, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.newsletters[id]
	if !ok {
		return newsletter.ErrNotFound
	}
	n.RecipientCount.Int64 = int64(count)
	n.RecipientCount.Valid = true
	r.newsletters[id] = n
	return nil
}

// --- Read Receipt Methods ---

func (r *NewsletterRepository) CreateRead(ctx context.Context, read *newsletter.Read) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reads {
		if existing.UserID == read.UserID && existing.NewsletterID == read.NewsletterID {
			read.ID = existing.ID
			return nil
		}
	}
	read.ID = r.id()
	r.reads[read.ID] = *read
	return nil
}

func (r *NewsletterRepository) GetRead(ctx context.Context, userID, newsletterID int64) (*newsletter.Read, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, read := range r.reads {
		if read.UserID == userID && read.NewsletterID == newsletterID {
			read := read
			return &read, nil
		}
	}
	return nil, newsletter.ErrReadNotFound
}

func (r *NewsletterRepository) DeleteReadsByUser(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, read := range r.reads {
		if read.UserID == userID {
			delete(r.reads, id)
		}
	}
	return nil
}
