package memory

import (
	"context"
	"sync"
	"time"

	"second_saturday/internal/domain/reminder"
)

type ReminderRepository struct {
	mu          sync.Mutex
	nextID      int64
	reminders   map[int64]reminder.AdminReminder
	preferences map[int64]reminder.Preference // keyed by user ID
}

func NewReminderRepository() *ReminderRepository {
	return &ReminderRepository{
		nextID:      1,
		reminders:   make(map[int64]reminder.AdminReminder),
		preferences: make(map[int64]reminder.Preference),
	}
}

func (r *ReminderRepository) CreateReminder(ctx context.Context, rem *reminder.AdminReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem.ID = r.nextID
	r.nextID++
	r.reminders[rem.ID] = *rem
	return nil
}

func (r *ReminderRepository) CountReminders(ctx context.Context, adminUserID, circleID int64, cycleID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rem := range r.reminders {
		if rem.AdminUserID == adminUserID && rem.CircleID == circleID && rem.CycleID == cycleID {
			count++
		}
	}
	return count, nil
}

func (r *ReminderRepository) DeleteRemindersByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, rem := range r.reminders {
		if rem.CircleID == circleID && rem.CycleID == cycleID {
			delete(r.reminders, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *ReminderRepository) GetPreference(ctx context.Context, userID int64) (*reminder.Preference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.preferences[userID]
	if !ok {
		return nil, reminder.ErrPreferenceNotFound
	}
	return &p, nil
}

func (r *ReminderRepository) UpsertPreference(ctx context.Context, p *reminder.Preference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.preferences[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = r.nextID
		r.nextID++
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.preferences[p.UserID] = *p
	return nil
}
