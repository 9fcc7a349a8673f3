package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/planhr/backend/domain"
)

type LeaveStore struct {
	mu     sync.RWMutex
	leaves []domain.Leave
}

func NewLeaveStore() *LeaveStore {
	return &LeaveStore{}
}

func (s *LeaveStore) Add(leaves ...domain.Leave) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves = append(s.leaves, leaves...)
}

func (s *LeaveStore) RequestsOverlapping(_ context.Context, employeeIDs []string, from, to time.Time) ([]domain.Leave, error) {
	ids := make(map[string]struct{}, len(employeeIDs))
	for _, id := range employeeIDs {
		ids[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Leave
	for _, leave := range s.leaves {
		if leave.Source != domain.LeaveRequest {
			continue
		}
		if _, ok := ids[leave.EmployeeID]; !ok {
			continue
		}
		if leave.Overlaps(from, to) {
			out = append(out, leave)
		}
	}
	sortLeaves(out)
	return out, nil
}

func (s *LeaveStore) ClosuresOverlapping(_ context.Context, from, to time.Time) ([]domain.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Leave
	for _, leave := range s.leaves {
		if leave.Source == domain.LeaveClosure && leave.Overlaps(from, to) {
			out = append(out, leave)
		}
	}
	sortLeaves(out)
	return out, nil
}

func sortLeaves(leaves []domain.Leave) {
	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].StartAt.Before(leaves[j].StartAt)
	})
}
