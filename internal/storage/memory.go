package storage

import (
	"sort"
	"sync"

	"github.com/dmeyerson/repboard/internal/types"
)

// MemoryStore is an in-memory Store used when DynamoDB is disabled and in
// tests. Maps are keyed the same way as the DynamoDB tables: stat rows by
// (reportDate, userID), derived and lookup tables by their hash key.
type MemoryStore struct {
	mu         sync.RWMutex
	callStats  map[string]types.CallStats
	emailStats map[string]types.EmailStats
	b2bStats   map[string]types.B2BStats
	averages   map[string]types.AverageRep
	users      map[string]types.User
	tokens     map[string]types.ProviderTokens
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		callStats:  make(map[string]types.CallStats),
		emailStats: make(map[string]types.EmailStats),
		b2bStats:   make(map[string]types.B2BStats),
		averages:   make(map[string]types.AverageRep),
		users:      make(map[string]types.User),
		tokens:     make(map[string]types.ProviderTokens),
	}
}

func rowKey(date, userID string) string {
	return date + "|" + userID
}

func (s *MemoryStore) UpsertCallStats(stats types.CallStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callStats[rowKey(stats.ReportDate, stats.UserID)] = stats
	return nil
}

func (s *MemoryStore) UpsertEmailStats(stats types.EmailStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailStats[rowKey(stats.ReportDate, stats.UserID)] = stats
	return nil
}

func (s *MemoryStore) UpsertB2BStats(stats types.B2BStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b2bStats[rowKey(stats.ReportDate, stats.UserID)] = stats
	return nil
}

func (s *MemoryStore) GetCallStatsByDate(date string) ([]types.CallStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []types.CallStats
	for _, row := range s.callStats {
		if row.ReportDate == date {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

func (s *MemoryStore) GetEmailStatsByDate(date string) ([]types.EmailStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []types.EmailStats
	for _, row := range s.emailStats {
		if row.ReportDate == date {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

func (s *MemoryStore) GetB2BStatsByDate(date string) ([]types.B2BStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []types.B2BStats
	for _, row := range s.b2bStats {
		if row.ReportDate == date {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

func (s *MemoryStore) GetUserCallStats(userID, date string) (*types.CallStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.callStats[rowKey(date, userID)]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetUserEmailStats(userID, date string) (*types.EmailStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.emailStats[rowKey(date, userID)]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetUserB2BStats(userID, date string) (*types.B2BStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.b2bStats[rowKey(date, userID)]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetAverageRep(date string) (*types.AverageRep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.averages[date]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpsertAverageRep(avg types.AverageRep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.averages[avg.ReportDate] = avg
	return nil
}

func (s *MemoryStore) DeleteAverageRep(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.averages, date)
	return nil
}

func (s *MemoryStore) ListUsers() ([]types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]types.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *MemoryStore) GetUser(email string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, ok := s.users[email]; ok {
		return &user, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpsertUser(user types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = user
	return nil
}

func (s *MemoryStore) GetTokens(provider string) (*types.ProviderTokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tokens, ok := s.tokens[provider]; ok {
		return &tokens, nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveTokens(tokens types.ProviderTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokens.Provider] = tokens
	return nil
}
