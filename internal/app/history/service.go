package history

import (
	"context"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// DefaultLimit is used when callers ask for a non-positive number of entries.
const DefaultLimit = 20

// Service holds the logic of reading past meal plans
type Service struct {
	bank domain.MemoryBank
}

// NewService creates a history service over a MemoryBank
func NewService(bank domain.MemoryBank) *Service {
	return &Service{
		bank: bank,
	}
}

// GetUserHistory returns the last `limit` history entries for a user, oldest first.
// If limit <= 0, DefaultLimit is used.
func (s *Service) GetUserHistory(
	_ context.Context,
	userID domain.UserID,
	limit int,
) []domain.HistoryEntry {

	if s.bank == nil {
		return []domain.HistoryEntry{}
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	entries := s.bank.GetMealHistory(userID, limit)
	if entries == nil {
		return []domain.HistoryEntry{}
	}
	return entries
}
