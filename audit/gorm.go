package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/agentcore/orchestrator"
)

// taskRecord is the relational shape of a stored task result. The full
// result, audit trail included, is kept as a JSON payload; the indexed
// columns exist for querying.
type taskRecord struct {
	ID        uint   `gorm:"primaryKey"`
	TaskID    string `gorm:"uniqueIndex;size:128"`
	Success   bool
	Duration  int64 // milliseconds
	Payload   []byte
	CreatedAt time.Time `gorm:"index"`
}

func (taskRecord) TableName() string { return "task_results" }

// GormStore persists task results through GORM. Works with SQLite for
// single-node deployments and PostgreSQL for shared ones.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite opens a SQLite-backed store. Use ":memory:" for tests.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewGormStore(db)
}

// OpenPostgres opens a PostgreSQL-backed store.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormStore(db)
}

// SaveResult persists one task result, upserting on task id.
func (s *GormStore) SaveResult(ctx context.Context, result *orchestrator.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return ErrInvalidInput
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}

	record := taskRecord{
		TaskID:   result.TaskID,
		Success:  result.Success,
		Duration: result.Duration.Milliseconds(),
		Payload:  payload,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"success", "duration", "payload"}),
		}).
		Create(&record).Error
}

// GetResult returns the result stored under taskID.
func (s *GormStore) GetResult(ctx context.Context, taskID string) (*orchestrator.TaskResult, error) {
	var record taskRecord
	err := s.db.WithContext(ctx).Where("task_id = ?", taskID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePayload(record.Payload)
}

// ListRecent returns up to limit results, most recent first.
func (s *GormStore) ListRecent(ctx context.Context, limit int) ([]*orchestrator.TaskResult, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]*orchestrator.TaskResult, 0, len(records))
	for _, record := range records {
		result, err := decodePayload(record.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

func decodePayload(payload []byte) (*orchestrator.TaskResult, error) {
	var result orchestrator.TaskResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal task result: %w", err)
	}
	return &result, nil
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
