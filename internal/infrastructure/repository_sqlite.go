package infrastructure

import (
	"errors"
	"fmt"

	"github.com/yourusername/ytfetch-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// filterColumns whitelists the columns FindAll may filter on
var filterColumns = map[string]bool{
	"status": true,
	"mode":   true,
	"url":    true,
}

// SQLiteJobRepository implements JobRepository using SQLite
type SQLiteJobRepository struct {
	db *gorm.DB
}

// NewSQLiteJobRepository creates a new SQLite repository
func NewSQLiteJobRepository(dbPath string) (*SQLiteJobRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.JobRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Create creates a new job record
func (r *SQLiteJobRepository) Create(job *domain.JobRecord) error {
	return r.db.Create(job).Error
}

// Update updates an existing job record
func (r *SQLiteJobRepository) Update(job *domain.JobRecord) error {
	return r.db.Save(job).Error
}

// Delete deletes a job record by ID
func (r *SQLiteJobRepository) Delete(id string) error {
	return r.db.Delete(&domain.JobRecord{}, "id = ?", id).Error
}

// FindByID finds a job record by ID
func (r *SQLiteJobRepository) FindByID(id string) (*domain.JobRecord, error) {
	var job domain.JobRecord
	err := r.db.First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
		}
		return nil, err
	}
	return &job, nil
}

// FindAll finds all job records with optional filters, newest first
func (r *SQLiteJobRepository) FindAll(filters map[string]interface{}) ([]*domain.JobRecord, error) {
	var jobs []*domain.JobRecord
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// GetStats returns job statistics
func (r *SQLiteJobRepository) GetStats() (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	if err := r.db.Model(&domain.JobRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.JobStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.JobRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.JobCreated, domain.JobRunning:
			stats.Running += sc.Count
		case domain.JobCompleted:
			stats.Completed = sc.Count
		case domain.JobFailed:
			stats.Failed = sc.Count
		case domain.JobSpawnFailed:
			stats.SpawnFailed = sc.Count
		case domain.JobCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// MarkInterrupted fails every job left running by a previous process.
func (r *SQLiteJobRepository) MarkInterrupted() (int64, error) {
	res := r.db.Model(&domain.JobRecord{}).
		Where("status IN ?", []domain.JobStatus{domain.JobCreated, domain.JobRunning}).
		Updates(map[string]interface{}{
			"status":        domain.JobFailed,
			"error_message": "interrupted by server restart",
		})
	return res.RowsAffected, res.Error
}

// Close closes the database connection
func (r *SQLiteJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
