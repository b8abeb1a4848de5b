package repository

import (
	"context"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"gorm.io/gorm"
)

// AnalysisRunRepository handles the append-only run log. Rows are never
// updated or deleted; the table is operational audit data only.
type AnalysisRunRepository struct {
	db *gorm.DB
}

// NewAnalysisRunRepository creates a new run log repository
func NewAnalysisRunRepository(db *gorm.DB) *AnalysisRunRepository {
	return &AnalysisRunRepository{db: db}
}

// Create inserts a new run record
func (r *AnalysisRunRepository) Create(ctx context.Context, run *domain.AnalysisRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// ListRecent retrieves the most recent runs, newest first
func (r *AnalysisRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []domain.AnalysisRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// ListByMonth retrieves all runs recorded for one month, newest first
func (r *AnalysisRunRepository) ListByMonth(ctx context.Context, month string) ([]domain.AnalysisRun, error) {
	var runs []domain.AnalysisRun
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("created_at DESC").
		Find(&runs).Error
	return runs, err
}
