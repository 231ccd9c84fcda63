package rundb

import "github.com/cyclopcam/scenereel/pkg/dbh"

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// SceneRun is one attempt at processing one scene
type SceneRun struct {
	ID           int64       `gorm:"primaryKey" json:"id"`
	RunID        string      `json:"runId"`
	SceneName    string      `json:"sceneName"`
	SceneToken   string      `json:"sceneToken"`
	Status       Status      `json:"status"`
	NumFrames    int         `json:"numFrames"`
	FramesFailed int         `json:"framesFailed"`
	VideoPath    string      `json:"videoPath,omitempty"`
	Error        string      `json:"error,omitempty"`
	StartedAt    dbh.IntTime `json:"startedAt"`
	FinishedAt   dbh.IntTime `json:"finishedAt,omitempty"`
}
