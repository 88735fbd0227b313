package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/models"
)

func JobRunToModel(r *jobrun.JobRun) (*models.JobRunModel, error) {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job run details: %w", err)
	}

	m := &models.JobRunModel{
		JobName:      r.Name,
		RunID:        r.RunID,
		Trigger:      r.Trigger,
		StartedAt:    r.StartedAt.UTC(),
		DurationMs:   r.Duration().Milliseconds(),
		Success:      r.Success,
		ErrorMessage: r.Error,
		Details:      datatypes.JSON(details),
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt.UTC()
		m.FinishedAt = &finished
	}
	return m, nil
}

func JobRunToDomain(m *models.JobRunModel) (*jobrun.JobRun, error) {
	r := &jobrun.JobRun{
		Name:      m.JobName,
		RunID:     m.RunID,
		Trigger:   m.Trigger,
		StartedAt: m.StartedAt.UTC(),
		Success:   m.Success,
		Error:     m.ErrorMessage,
	}
	if m.FinishedAt != nil {
		r.FinishedAt = m.FinishedAt.UTC()
	}
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &r.Details); err != nil {
			return nil, fmt.Errorf("failed to decode job run details: %w", err)
		}
	}
	return r, nil
}
