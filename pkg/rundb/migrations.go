package rundb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/scenereel/pkg/dbh"
	"github.com/cyclopcam/scenereel/pkg/log"
)

func Migrations(log log.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE scene_run(
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			scene_name TEXT NOT NULL,
			scene_token TEXT NOT NULL,
			status TEXT NOT NULL,
			num_frames INT NOT NULL DEFAULT 0,
			frames_failed INT NOT NULL DEFAULT 0,
			video_path TEXT,
			error TEXT,
			started_at INT,
			finished_at INT
		);
		CREATE INDEX idx_scene_run_scene_name ON scene_run (scene_name);
		CREATE INDEX idx_scene_run_run_id ON scene_run (run_id);
	`))

	return migs
}
