package runhistory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"gorm.io/gorm"
)

// runRow is the persisted form of a RunRecord. Seq fixes completion order
// independently of clock resolution.
type runRow struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"type:char(36);not null;uniqueIndex"`
	AgentType string    `gorm:"type:varchar(64);not null;index"`
	Metrics   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (runRow) TableName() string {
	return "run_records"
}

// SQLStore keeps the history in the run_records table.
type SQLStore struct {
	db     *gorm.DB
	limit  int
	logger logger.Logger
	now    func() time.Time
}

// NewSQLStore creates a database-backed history store.
func NewSQLStore(db *gorm.DB, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		limit:  MaxRuns,
		logger: log.WithField("component", "runhistory"),
		now:    time.Now,
	}
}

// AutoMigrate creates the run_records table without the migration files.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&runRow{})
}

// LogRun inserts a record and deletes anything beyond the retention limit.
func (s *SQLStore) LogRun(ctx context.Context, metrics map[string]interface{}) (*RunRecord, error) {
	record := newRecord(s.now().UTC(), metrics)

	encoded, err := json.Marshal(record.Metrics)
	if err != nil {
		return record, err
	}
	row := &runRow{
		ID:        record.ID.String(),
		AgentType: string(record.AgentType()),
		Metrics:   string(encoded),
		CreatedAt: record.Timestamp,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return s.trim(tx)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to save run", map[string]interface{}{
			"run_id": record.ID.String(),
			"error":  err.Error(),
		})
		return record, err
	}

	s.logger.Info(ctx, "run logged", map[string]interface{}{
		"run_id":     record.ID.String(),
		"agent_type": row.AgentType,
	})
	return record, nil
}

func (s *SQLStore) trim(tx *gorm.DB) error {
	var cutoff []uint64
	err := tx.Model(&runRow{}).
		Order("seq DESC").
		Offset(s.limit-1).
		Limit(1).
		Pluck("seq", &cutoff).Error
	if err != nil {
		return err
	}
	if len(cutoff) == 0 {
		return nil
	}
	return tx.Where("seq < ?", cutoff[0]).Delete(&runRow{}).Error
}

// LoadHistory returns retained records oldest first.
func (s *SQLStore) LoadHistory(ctx context.Context) []*RunRecord {
	var rows []runRow
	err := s.db.WithContext(ctx).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		s.logger.Error(ctx, "failed to load run history", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	records := make([]*RunRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable run", map[string]interface{}{
				"run_id": row.ID,
				"error":  err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records
}

func (r runRow) toRecord() (*RunRecord, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	metrics := map[string]interface{}{}
	if err := json.Unmarshal([]byte(r.Metrics), &metrics); err != nil {
		return nil, err
	}
	return &RunRecord{
		ID:        id,
		Timestamp: r.CreatedAt,
		Metrics:   metrics,
	}, nil
}
