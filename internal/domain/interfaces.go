package domain

import (
	"context"
)

// Diagnoser produces a ranked differential diagnosis for a set of reported
// findings.
type Diagnoser interface {
	Diagnose(ctx context.Context, symptoms []string, opts DiagnoseOptions) (*DiagnosisResult, error)
}

// HistoryRepository defines the interface for diagnosis history persistence
type HistoryRepository interface {
	Save(ctx context.Context, record *DiagnosisRecord) error
	Get(ctx context.Context, id string) (*DiagnosisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*DiagnosisRecord, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetCacheConfig() *CacheConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
