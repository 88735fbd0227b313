package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/mappers"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/models"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// JobRunRepository implements jobrun.Repository.
type JobRunRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewJobRunRepository(db *gorm.DB, logger logger.Interface) jobrun.Repository {
	return &JobRunRepository{db: db, logger: logger}
}

func (r *JobRunRepository) Save(ctx context.Context, run *jobrun.JobRun) error {
	model, err := mappers.JobRunToModel(run)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "trigger_type", "started_at", "finished_at", "duration_ms",
			"success", "error_message", "details", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to save job run", "job", run.Name, "run_id", run.RunID, "error", err)
		return fmt.Errorf("failed to save job run: %w", err)
	}
	return nil
}

func (r *JobRunRepository) Get(ctx context.Context, name string) (*jobrun.JobRun, error) {
	var model models.JobRunModel
	if err := r.db.WithContext(ctx).Where("job_name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jobrun.ErrJobRunNotFound
		}
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}
	return mappers.JobRunToDomain(&model)
}

func (r *JobRunRepository) List(ctx context.Context) ([]*jobrun.JobRun, error) {
	var rows []*models.JobRunModel
	if err := r.db.WithContext(ctx).Order("job_name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}

	runs := make([]*jobrun.JobRun, 0, len(rows))
	for _, row := range rows {
		run, err := mappers.JobRunToDomain(row)
		if err != nil {
			r.logger.Warnw("skipping unreadable job run", "job", row.JobName, "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
