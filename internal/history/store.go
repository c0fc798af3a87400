package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hostguard/internal/syncer"
)

// CommandRecord is one audited dispatch with its eventual outcome.
type CommandRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	AgentID     string `gorm:"size:191;index"`
	ActionType  string `gorm:"size:64"`
	Description string `gorm:"size:512"`
	CommandID   string `gorm:"size:64;index"` // empty for synchronous actions
	Outcome     string `gorm:"size:32"`
	Message     string `gorm:"size:512"`
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Store keeps a local sqlite audit trail of every quick action the
// operator issued from this console. It implements
// syncer.HistoryRecorder; recording is best effort and never blocks the
// pipeline on storage errors.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&CommandRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// RecordDispatch logs an issued action and returns the record id.
func (s *Store) RecordDispatch(agentID string, action syncer.Action, commandID string) string {
	rec := CommandRecord{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		ActionType:  string(action.Kind()),
		Description: action.Describe(),
		CommandID:   commandID,
		Outcome:     string(syncer.StatusPending),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		s.log.Error().Err(err).Str("agent", agentID).Msg("failed to record dispatch")
	}
	return rec.ID
}

// RecordOutcome attaches the terminal status to an earlier record.
func (s *Store) RecordOutcome(recordID string, status syncer.Status, message string) {
	now := time.Now()
	err := s.db.Model(&CommandRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]any{
			"outcome":     string(status),
			"message":     message,
			"resolved_at": &now,
		}).Error
	if err != nil {
		s.log.Error().Err(err).Str("record", recordID).Msg("failed to record outcome")
	}
}

// Recent returns the newest records for an agent, most recent first.
// An empty agentID returns records across the fleet.
func (s *Store) Recent(agentID string, limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.Order("created_at DESC").Limit(limit)
	if agentID != "" {
		q = q.Where("agent_id = ?", agentID)
	}
	var records []CommandRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return records, nil
}
