package storage

import (
	"errors"

	"video-narrator/internal/types"

	"gorm.io/gorm"
)

var errDBNotInitialized = errors.New("database not initialized")

// SaveRun upserts by run id.
func SaveRun(run *types.NarrationRun) error {
	if DB == nil {
		return errDBNotInitialized
	}
	var existing types.NarrationRun
	result := DB.Where("run_id = ?", run.RunId).First(&existing)

	if result.Error == nil {
		run.Id = existing.Id
		run.CreateTime = existing.CreateTime
		return DB.Save(run).Error
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return DB.Create(run).Error
	}
	return result.Error
}

func GetRun(runId string) (*types.NarrationRun, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	var run types.NarrationRun
	if err := DB.Where("run_id = ?", runId).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func GetRunHistory(limit int) ([]types.NarrationRun, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	var runs []types.NarrationRun
	if err := DB.Order("create_time desc").Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func DeleteRun(runId string) error {
	if DB == nil {
		return errDBNotInitialized
	}
	return DB.Where("run_id = ?", runId).Delete(&types.NarrationRun{}).Error
}

// UpdateRunStage records a stage transition without touching the rest of the
// row.
func UpdateRunStage(runId, stage, msg string) error {
	if DB == nil {
		return errDBNotInitialized
	}
	return DB.Model(&types.NarrationRun{}).
		Where("run_id = ?", runId).
		Updates(map[string]interface{}{
			"stage":      stage,
			"status_msg": msg,
		}).Error
}

// MarkStaleRuns fails every run left running by a previous process.
func MarkStaleRuns() (int64, error) {
	if DB == nil {
		return 0, errDBNotInitialized
	}
	result := DB.Model(&types.NarrationRun{}).
		Where("status IN ?", []int{int(types.RunStatusQueued), int(types.RunStatusRunning)}).
		Updates(map[string]interface{}{
			"status":      types.RunStatusFailed,
			"stage":       "failed",
			"fail_reason": "run interrupted by restart",
			"status_msg":  "Interrupted",
		})
	return result.RowsAffected, result.Error
}
