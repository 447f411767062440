// internal/app/circle_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"unicode/utf8"

	"second_saturday/internal/domain/circle"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Validation and state-conflict errors for circle management.
var (
	ErrCircleNameInvalid  = fmt.Errorf("circle name must be 3-50 characters")
	ErrCircleArchived     = fmt.Errorf("this circle has been archived")
	ErrPromptCountInvalid = fmt.Errorf("must have 1-8 prompts")
	ErrPromptTextTooLong  = fmt.Errorf("prompt text must be 200 characters or less")
	ErrPromptWrongCircle  = fmt.Errorf("prompt does not belong to this circle")
)

// PromptEdit is one entry of an admin's prompt update: an existing
// prompt when ID is set, a new one otherwise.
type PromptEdit struct {
	ID    int64 // 0 = create
	Text  string
	Order int
}

// CircleService manages circles and their prompt sets.
type CircleService struct {
	circleRepo circle.Repository
	clock      Clock
	logger     *logrus.Logger
}

func NewCircleService(cr circle.Repository, clock Clock, logger *logrus.Logger) *CircleService {
	return &CircleService{circleRepo: cr, clock: clock, logger: logger}
}

// Name and prompt limits count characters, not bytes.
func circleNameValid(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 3 && n <= 50
}

// Create founds a new circle: the caller becomes its admin, an opaque
// invite code is issued and the default prompts are seeded.
func (s *CircleService) Create(ctx context.Context, founderID int64, name, description, timezone string) (*circle.Circle, error) {
	if !circleNameValid(name) {
		return nil, ErrCircleNameInvalid
	}

	now := s.clock.Now()
	c := &circle.Circle{
		Name:       name,
		AdminID:    founderID,
		InviteCode: uuid.NewString(),
		Timezone:   timezone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if description != "" {
		c.Description = sql.NullString{String: description, Valid: true}
	}

	// Circle, admin membership and seed prompts land atomically.
	err := s.circleRepo.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.circleRepo.CreateCircle(ctx, c); err != nil {
			return fmt.Errorf("failed to create circle: %w", err)
		}

		m := &circle.Membership{
			UserID:   founderID,
			CircleID: c.ID,
			Role:     circle.RoleAdmin,
			JoinedAt: now,
		}
		if err := s.circleRepo.CreateMembership(ctx, m); err != nil {
			return fmt.Errorf("failed to create admin membership: %w", err)
		}

		for i, text := range circle.DefaultPrompts {
			p := &circle.Prompt{
				CircleID:  c.ID,
				Text:      text,
				Order:     i,
				Active:    true,
				CreatedAt: now,
			}
			if err := s.circleRepo.CreatePrompt(ctx, p); err != nil {
				return fmt.Errorf("failed to seed default prompt: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"circle_id": c.ID, "admin_id": founderID}).Info("Circle created")
	return c, nil
}

// Update applies admin edits to name and description.
func (s *CircleService) Update(ctx context.Context, callerID, circleID int64, name, description *string) error {
	if _, err := requireAdmin(ctx, s.circleRepo, callerID, circleID); err != nil {
		return err
	}
	c, err := s.circleRepo.GetCircleByID(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to get circle: %w", err)
	}
	if name != nil {
		if !circleNameValid(*name) {
			return ErrCircleNameInvalid
		}
		c.Name = *name
	}
	if description != nil {
		c.Description = sql.NullString{String: *description, Valid: *description != ""}
	}
	c.UpdatedAt = s.clock.Now()
	if err := s.circleRepo.UpdateCircle(ctx, c); err != nil {
		return fmt.Errorf("failed to update circle: %w", err)
	}
	return nil
}

// RotateInviteCode issues a fresh code, invalidating all previously
// distributed links immediately.
func (s *CircleService) RotateInviteCode(ctx context.Context, callerID, circleID int64) (string, error) {
	if _, err := requireAdmin(ctx, s.circleRepo, callerID, circleID); err != nil {
		return "", err
	}
	c, err := s.circleRepo.GetCircleByID(ctx, circleID)
	if err != nil {
		return "", fmt.Errorf("failed to get circle: %w", err)
	}
	c.InviteCode = uuid.NewString()
	c.UpdatedAt = s.clock.Now()
	if err := s.circleRepo.UpdateCircle(ctx, c); err != nil {
		return "", fmt.Errorf("failed to rotate invite code: %w", err)
	}
	s.logger.WithField("circle_id", circleID).Info("Invite code rotated")
	return c.InviteCode, nil
}

// Archive retires a circle. Archived circles accept no invites and are
// skipped by every sweep; archiving is terminal.
func (s *CircleService) Archive(ctx context.Context, callerID, circleID int64) error {
	if _, err := requireAdmin(ctx, s.circleRepo, callerID, circleID); err != nil {
		return err
	}
	c, err := s.circleRepo.GetCircleByID(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to get circle: %w", err)
	}
	if c.Archived() {
		return ErrCircleArchived
	}
	now := s.clock.Now()
	c.ArchivedAt = sql.NullTime{Time: now, Valid: true}
	c.UpdatedAt = now
	if err := s.circleRepo.UpdateCircle(ctx, c); err != nil {
		return fmt.Errorf("failed to archive circle: %w", err)
	}
	s.logger.WithField("circle_id", circleID).Info("Circle archived")
	return nil
}

// UpdatePrompts replaces the circle's active prompt set: every existing
// prompt is deactivated, then each edit is applied or inserted active.
func (s *CircleService) UpdatePrompts(ctx context.Context, callerID, circleID int64, edits []PromptEdit) error {
	if _, err := requireAdmin(ctx, s.circleRepo, callerID, circleID); err != nil {
		return err
	}
	if len(edits) < 1 || len(edits) > circle.MaxActivePrompts {
		return ErrPromptCountInvalid
	}
	for _, e := range edits {
		if utf8.RuneCountInString(e.Text) > circle.MaxPromptText {
			return ErrPromptTextTooLong
		}
	}

	existing, err := s.circleRepo.ListPromptsByCircle(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to list prompts: %w", err)
	}
	byID := make(map[int64]*circle.Prompt, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}
	// Referencing another circle's prompt is a validation error; check
	// before any write so the update stays all-or-nothing.
	for _, e := range edits {
		if e.ID != 0 {
			if _, ok := byID[e.ID]; !ok {
				return ErrPromptWrongCircle
			}
		}
	}

	for _, p := range existing {
		if p.Active {
			p.Active = false
			if err := s.circleRepo.UpdatePrompt(ctx, p); err != nil {
				return fmt.Errorf("failed to deactivate prompt: %w", err)
			}
		}
	}

	now := s.clock.Now()
	for _, e := range edits {
		if e.ID != 0 {
			p := byID[e.ID]
			p.Text = e.Text
			p.Order = e.Order
			p.Active = true
			if err := s.circleRepo.UpdatePrompt(ctx, p); err != nil {
				return fmt.Errorf("failed to update prompt: %w", err)
			}
			continue
		}
		p := &circle.Prompt{
			CircleID:  circleID,
			Text:      e.Text,
			Order:     e.Order,
			Active:    true,
			CreatedAt: now,
		}
		if err := s.circleRepo.CreatePrompt(ctx, p); err != nil {
			return fmt.Errorf("failed to create prompt: %w", err)
		}
	}
	return nil
}

// ActivePrompts returns the circle's active prompts sorted by order.
func (s *CircleService) ActivePrompts(ctx context.Context, callerID, circleID int64) ([]*circle.Prompt, error) {
	if _, err := requireMembership(ctx, s.circleRepo, callerID, circleID); err != nil {
		return nil, err
	}
	return activePrompts(ctx, s.circleRepo, circleID)
}

func activePrompts(ctx context.Context, repo circle.Repository, circleID int64) ([]*circle.Prompt, error) {
	all, err := repo.ListPromptsByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	active := make([]*circle.Prompt, 0, len(all))
	for _, p := range all {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Order < active[j].Order })
	return active, nil
}
