package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"second_saturday/internal/domain/submission"
)

type SubmissionRepository struct {
	mu          sync.Mutex
	nextID      int64
	submissions map[int64]submission.Submission
	responses   map[int64]submission.Response
	media       map[int64]submission.Media
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{
		nextID:      1,
		submissions: make(map[int64]submission.Submission),
		responses:   make(map[int64]submission.Response),
		media:       make(map[int64]submission.Media),
	}
}

func (r *SubmissionRepository) id() int64 {
	id := r.nextID
	r.nextID++
	return id
}

// --- Submission Methods ---

func (r *SubmissionRepository) CreateSubmission(ctx context.Context, s *submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.submissions {
		if existing.UserID == s.UserID && existing.CircleID == s.CircleID && existing.CycleID == s.CycleID {
			return submission.ErrDuplicateSubmission
		}
	}
	s.ID = r.id()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.UpdatedAt = s.CreatedAt
	r.submissions[s.ID] = *s
	return nil
}

func (r *SubmissionRepository) GetSubmissionByID(ctx context.Context, id int64) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, submission.ErrSubmissionNotFound
	}
	return &s, nil
}

func (r *SubmissionRepository) GetSubmission(ctx context.Context, userID, circleID int64, cycleID string) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.UserID == userID && s.CircleID == circleID && s.CycleID == cycleID {
			s := s
			return &s, nil
		}
	}
	return nil, submission.ErrSubmissionNotFound
}

func (r *SubmissionRepository) UpdateSubmission(ctx context.Context, s *submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[s.ID]; !ok {
		return submission.ErrSubmissionNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	r.submissions[s.ID] = *s
	return nil
}

func (r *SubmissionRepository) DeleteSubmission(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[id]; !ok {
		return submission.ErrSubmissionNotFound
	}
	delete(r.submissions, id)
	return nil
}

func (r *SubmissionRepository) ListUnlockedSubmissions(ctx context.Context) ([]*submission.Submission, error) {
	return r.listSubmissions(func(s submission.Submission) bool { return !s.LockedAt.Valid })
}

func (r *SubmissionRepository) ListSubmissionsByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) ([]*submission.Submission, error) {
	return r.listSubmissions(func(s submission.Submission) bool {
		return s.CircleID == circleID && s.CycleID == cycleID
	})
}

func (r *SubmissionRepository) ListSubmissionsByUserAndCircle(ctx context.Context, userID, circleID int64) ([]*submission.Submission, error) {
	return r.listSubmissions(func(s submission.Submission) bool {
		return s.UserID == userID && s.CircleID == circleID
	})
}

func (r *SubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID int64) ([]*submission.Submission, error) {
	return r.listSubmissions(func(s submission.Submission) bool { return s.UserID == userID })
}

func (r *SubmissionRepository) listSubmissions(keep func(submission.Submission) bool) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*submission.Submission, 0)
	for _, s := range r.submissions {
		if keep(s) {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Response Methods ---

func (r *SubmissionRepository) CreateResponse(ctx context.Context, resp *submission.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.responses {
		if existing.SubmissionID == resp.SubmissionID && existing.PromptID == resp.PromptID {
			return submission.ErrDuplicateResponse
		}
	}
	resp.ID = r.id()
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	resp.UpdatedAt = resp.CreatedAt
	r.responses[resp.ID] = *resp
	return nil
}

func (r *SubmissionRepository) GetResponseByID(ctx context.Context, id int64) (*submission.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[id]
	if !ok {
		return nil, submission.ErrResponseNotFound
	}
	return &resp, nil
}

func (r *SubmissionRepository) GetResponse(ctx context.Context, submissionID, promptID int64) (*submission.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.responses {
		if resp.SubmissionID == submissionID && resp.PromptID == promptID {
			resp := resp
			return &resp, nil
		}
	}
	return nil, submission.ErrResponseNotFound
}

func (r *SubmissionRepository) UpdateResponse(ctx context.Context, resp *submission.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.responses[resp.ID]; !ok {
		return submission.ErrResponseNotFound
	}
	resp.UpdatedAt = time.Now().UTC()
	r.responses[resp.ID] = *resp
	return nil
}

func (r *SubmissionRepository) DeleteResponse(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.responses[id]; !ok {
		return submission.ErrResponseNotFound
	}
	delete(r.responses, id)
	return nil
}

func (r *SubmissionRepository) ListResponsesBySubmission(ctx context.Context, submissionID int64) ([]*submission.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*submission.Response, 0)
	for _, resp := range r.responses {
		if resp.SubmissionID == submissionID {
			resp := resp
			out = append(out, &resp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Media Methods ---

func (r *SubmissionRepository) CreateMedia(ctx context.Context, m *submission.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.id()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.media[m.ID] = *m
	return nil
}

func (r *SubmissionRepository) GetMediaByID(ctx context.Context, id int64) (*submission.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.media[id]
	if !ok {
		return nil, submission.ErrMediaNotFound
	}
	return &m, nil
}

func (r *SubmissionRepository) UpdateMediaOrder(ctx context.Context, id int64, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.media[id]
	if !ok {
		return submission.ErrMediaNotFound
	}
	m.Order = order
	r.media[id] = m
	return nil
}

func (r *SubmissionRepository) DeleteMedia(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.media[id]; !ok {
		return submission.ErrMediaNotFound
	}
	delete(r.media, id)
	return nil
}

func (r *SubmissionRepository) ListMediaByResponse(ctx context.Context, responseID int64) ([]*submission.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*submission.Media, 0)
	for _, m := range r.media {
		if m.ResponseID == responseID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
