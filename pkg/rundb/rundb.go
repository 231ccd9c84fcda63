package rundb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cyclopcam/scenereel/pkg/dbh"
	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filename of the run index, inside the output root
const Filename = "scenereel.sqlite"

// RunDB records the outcome of every scene that scenereel processes, so that
// an interrupted batch can be resumed.
type RunDB struct {
	log   log.Log
	db    *gorm.DB
	runID string // Shared by every scene of this process

	writeLock sync.Mutex // SQLite allows one writer, and scene workers finish concurrently
}

// Open or create the run index inside outputRoot
func Open(log log.Log, outputRoot string) (*RunDB, error) {
	outputRoot = filepath.Clean(outputRoot)
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create output directory '%v': %w", outputRoot, err)
	}
	dbPath := filepath.Join(outputRoot, Filename)
	db, err := dbh.OpenDB(log, dbPath, Migrations(log), 0)
	if err != nil {
		return nil, err
	}
	r := &RunDB{
		log:   log,
		db:    db,
		runID: uuid.NewString(),
	}
	log.Infof("Run %v, index at %v", r.runID, dbPath)
	return r, nil
}

func (r *RunDB) RunID() string {
	return r.runID
}

// Start records that a scene is being processed, and returns the new row's ID
func (r *RunDB) Start(sceneName, sceneToken string) (int64, error) {
	run := &SceneRun{
		RunID:      r.runID,
		SceneName:  sceneName,
		SceneToken: sceneToken,
		Status:     StatusRunning,
		StartedAt:  dbh.MakeIntTime(time.Now()),
	}
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	if err := r.db.Create(run).Error; err != nil {
		return 0, fmt.Errorf("Failed to record start of %v: %w", sceneName, err)
	}
	return run.ID, nil
}

// Finish records the outcome of a scene. A non-nil sceneErr marks the scene as failed.
func (r *RunDB) Finish(id int64, numFrames, framesFailed int, videoPath string, sceneErr error) error {
	updates := map[string]any{
		"status":        StatusDone,
		"num_frames":    numFrames,
		"frames_failed": framesFailed,
		"video_path":    videoPath,
		"finished_at":   dbh.MakeIntTime(time.Now()),
	}
	if sceneErr != nil {
		updates["status"] = StatusFailed
		updates["error"] = sceneErr.Error()
	}
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	return r.db.Model(&SceneRun{}).Where("id = ?", id).Updates(updates).Error
}

// DoneScenes returns the names of all scenes that have been finished successfully
func (r *RunDB) DoneScenes() ([]string, error) {
	rows, err := r.db.Raw("SELECT DISTINCT scene_name FROM scene_run WHERE status = ? ORDER BY scene_name", StatusDone).Rows()
	return dbh.ScanArray[string](rows, err)
}

// Runs returns every row for this process's run, oldest first
func (r *RunDB) Runs() ([]SceneRun, error) {
	runs := []SceneRun{}
	err := r.db.Where("run_id = ?", r.runID).Order("id").Find(&runs).Error
	return runs, err
}

// Latest returns the most recent row for a scene, or nil if the scene has never been processed
func (r *RunDB) Latest(sceneName string) (*SceneRun, error) {
	runs := []SceneRun{}
	if err := r.db.Where("scene_name = ?", sceneName).Order("id DESC").Limit(1).Find(&runs).Error; err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *RunDB) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
