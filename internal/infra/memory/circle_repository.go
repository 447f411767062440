package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"second_saturday/internal/domain/circle"
)

type CircleRepository struct {
	mu          sync.Mutex
	nextID      int64
	circles     map[int64]circle.Circle
	memberships map[int64]circle.Membership
	prompts     map[int64]circle.Prompt
}

func NewCircleRepository() *CircleRepository {
	return &CircleRepository{
		nextID:      1,
		circles:     make(map[int64]circle.Circle),
		memberships: make(map[int64]circle.Membership),
		prompts:     make(map[int64]circle.Prompt),
	}
}

func (r *CircleRepository) id() int64 {
	id := r.nextID
	r.nextID++
	return id
}

// WithinTx snapshots the maps and restores them if fn fails, so a
// multi-write sequence either lands whole or not at all.
func (r *CircleRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	nextID := r.nextID
	circles := make(map[int64]circle.Circle, len(r.circles))
	for k, v := range r.circles {
		circles[k] = v
	}
	memberships := make(map[int64]circle.Membership, len(r.memberships))
	for k, v := range r.memberships {
		memberships[k] = v
	}
	prompts := make(map[int64]circle.Prompt, len(r.prompts))
	for k, v := range r.prompts {
		prompts[k] = v
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.nextID = nextID
		r.circles = circles
		r.memberships = memberships
		r.prompts = prompts
		r.mu.Unlock()
		return err
	}
	return nil
}

// --- Circle Methods ---

func (r *CircleRepository) CreateCircle(ctx context.Context, c *circle.Circle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.circles {
		if existing.InviteCode == c.InviteCode {
			return circle.ErrDuplicateInviteCode
		}
	}
	c.ID = r.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	r.circles[c.ID] = *c
	return nil
}

func (r *CircleRepository) GetCircleByID(ctx context.Context, id int64) (*circle.Circle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circles[id]
	if !ok {
		return nil, circle.ErrCircleNotFound
	}
	return &c, nil
}

func (r *CircleRepository) GetCircleByInviteCode(ctx context.Context, code string) (*circle.Circle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.circles {
		if c.InviteCode == code {
			c := c
			return &c, nil
		}
	}
	return nil, circle.ErrCircleNotFound
}

func (r *CircleRepository) UpdateCircle(ctx context.Context, c *circle.Circle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.circles[c.ID]; !ok {
		return circle.ErrCircleNotFound
	}
	for id, existing := range r.circles {
		if id != c.ID && existing.InviteCode == c.InviteCode {
			return circle.ErrDuplicateInviteCode
		}
	}
	c.UpdatedAt = time.Now().UTC()
	r.circles[c.ID] = *c
	return nil
}

func (r *CircleRepository) ListActiveCircles(ctx context.Context) ([]*circle.Circle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*circle.Circle, 0)
	for _, c := range r.circles {
		if !c.ArchivedAt.Valid {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CircleRepository) ListCirclesByAdmin(ctx context.Context, adminID int64) ([]*circle.Circle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*circle.Circle, 0)
	for _, c := range r.circles {
		if c.AdminID == adminID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Membership Methods ---

func (r *CircleRepository) CreateMembership(ctx context.Context, m *circle.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.memberships {
		if existing.UserID == m.UserID && existing.CircleID == m.CircleID {
			return circle.ErrDuplicateMembership
		}
	}
	m.ID = r.id()
	r.memberships[m.ID] = *m
	return nil
}

func (r *CircleRepository) GetMembership(ctx context.Context, userID, circleID int64) (*circle.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.UserID == userID && m.CircleID == circleID {
			m := m
			return &m, nil
		}
	}
	return nil, circle.ErrMembershipNotFound
}

func (r *CircleRepository) UpdateMembership(ctx context.Context, m *circle.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.memberships[m.ID]; !ok {
		return circle.ErrMembershipNotFound
	}
	r.memberships[m.ID] = *m
	return nil
}

func (r *CircleRepository) ListMembershipsByCircle(ctx context.Context, circleID int64) ([]*circle.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*circle.Membership, 0)
	for _, m := range r.memberships {
		if m.CircleID == circleID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CircleRepository) ListMembershipsByUser(ctx context.Context, userID int64) ([]*circle.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*circle.Membership, 0)
	for _, m := range r.memberships {
		if m.UserID == userID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Prompt Methods ---

func (r *CircleRepository) CreatePrompt(ctx context.Context, p *circle.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.prompts[p.ID] = *p
	return nil
}

func (r *CircleRepository) GetPromptByID(ctx context.Context, id int64) (*circle.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[id]
	if !ok {
		return nil, circle.ErrPromptNotFound
	}
	return &p, nil
}

func (r *CircleRepository) UpdatePrompt(ctx context.Context, p *circle.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[p.ID]; !ok {
		return circle.ErrPromptNotFound
	}
	r.prompts[p.ID] = *p
	return nil
}

func (r *CircleRepository) ListPromptsByCircle(ctx context.Context, circleID int64) ([]*circle.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*circle.Prompt, 0)
	for _, p := range r.prompts {
		if p.CircleID == circleID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
