package reminder

import (
	"context"
	"sort"
	"sync"

	"github.com/mmynk/tabsplit/internal/models"
)

var _ Scheduler = (*MemoryScheduler)(nil)

// MemoryScheduler keeps reminders in process memory.
type MemoryScheduler struct {
	mu        sync.Mutex
	reminders map[string]models.Reminder
}

// NewMemoryScheduler creates an empty in-memory scheduler.
func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{reminders: make(map[string]models.Reminder)}
}

func (s *MemoryScheduler) ScheduleDaily(ctx context.Context, r models.Reminder) error {
	if err := validate(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.Key] = r
	return nil
}

func (s *MemoryScheduler) Cancel(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, key)
	return nil
}

func (s *MemoryScheduler) List(ctx context.Context) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]models.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

func (s *MemoryScheduler) MarkFired(ctx context.Context, key string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reminders[key]; ok {
		r.LastFired = at
		s.reminders[key] = r
	}
	return nil
}
