// Package storage persists devgate's client API keys, request logs, and
// usage aggregates in a local SQLite database.
package storage

// Storage defines the interface for persistent data storage
type Storage interface {
	// Request logging operations
	LogRequest(log *RequestLog) error
	GetRequestLogs(filter LogFilter) ([]*RequestLog, error)
	DeleteRequestLogs(olderThan string) (int64, error)

	// Usage statistics operations
	GetUsageStats(filter StatsFilter) (*UsageStats, error)
	GetDailyUsage(startDate, endDate string) ([]*DailyUsage, error)
	UpdateDailyUsage(usage *DailyUsage) error

	// Client API key operations
	CreateAPIKey(key *ClientAPIKey) error
	GetAPIKey(id string) (*ClientAPIKey, error)
	GetAPIKeyByPrefix(prefix string) ([]*ClientAPIKey, error)
	ListAPIKeys() ([]*ClientAPIKey, error)
	UpdateAPIKey(key *ClientAPIKey) error
	DeleteAPIKey(id string) error
	UpdateAPIKeyLastUsed(id string) error

	// Admin password operations
	GetAdminPasswordHash() (string, error)
	SetAdminPasswordHash(hash string) error
	HasAdminPassword() (bool, error)

	// Maintenance operations
	Close() error
}
