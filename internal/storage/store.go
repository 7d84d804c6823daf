package storage

import "github.com/dmeyerson/repboard/internal/types"

// Store defines the storage interface. One row exists per (reportDate,
// userID) natural key per stat table; Upsert* calls replace the row.
// Get* lookups return (nil, nil) when no row exists.
type Store interface {
	UpsertCallStats(stats types.CallStats) error
	UpsertEmailStats(stats types.EmailStats) error
	UpsertB2BStats(stats types.B2BStats) error

	GetCallStatsByDate(date string) ([]types.CallStats, error)
	GetEmailStatsByDate(date string) ([]types.EmailStats, error)
	GetB2BStatsByDate(date string) ([]types.B2BStats, error)

	GetUserCallStats(userID, date string) (*types.CallStats, error)
	GetUserEmailStats(userID, date string) (*types.EmailStats, error)
	GetUserB2BStats(userID, date string) (*types.B2BStats, error)

	GetAverageRep(date string) (*types.AverageRep, error)
	UpsertAverageRep(avg types.AverageRep) error
	DeleteAverageRep(date string) error

	ListUsers() ([]types.User, error)
	GetUser(email string) (*types.User, error)
	UpsertUser(user types.User) error

	GetTokens(provider string) (*types.ProviderTokens, error)
	SaveTokens(tokens types.ProviderTokens) error
}
