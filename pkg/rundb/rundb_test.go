package rundb

import (
	"errors"
	"testing"

	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/stretchr/testify/require"
)

func TestRunLifecycle(t *testing.T) {
	root := t.TempDir()
	db, err := Open(log.NewTestingLog(t), root)
	require.NoError(t, err)
	require.NotEmpty(t, db.RunID())

	id1, err := db.Start("scene-0001", "tok1")
	require.NoError(t, err)
	id2, err := db.Start("scene-0002", "tok2")
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	// Running scenes are not done
	names, err := db.DoneScenes()
	require.NoError(t, err)
	require.Empty(t, names)

	require.NoError(t, db.Finish(id1, 39, 1, "videos/scene-0001.mp4", nil))
	require.NoError(t, db.Finish(id2, 0, 0, "", errors.New("Channel not found")))

	names, err = db.DoneScenes()
	require.NoError(t, err)
	require.Equal(t, []string{"scene-0001"}, names)

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, StatusDone, runs[0].Status)
	require.Equal(t, 39, runs[0].NumFrames)
	require.Equal(t, 1, runs[0].FramesFailed)
	require.False(t, runs[0].FinishedAt.IsZero())
	require.Equal(t, StatusFailed, runs[1].Status)
	require.Equal(t, "Channel not found", runs[1].Error)
	require.NoError(t, db.Close())

	// A second process sees the first one's results under a new run ID
	db2, err := Open(log.NewTestingLog(t), root)
	require.NoError(t, err)
	defer db2.Close()
	require.NotEqual(t, db.RunID(), db2.RunID())
	// A later success is reported once
	id3, err := db2.Start("scene-0001", "tok1")
	require.NoError(t, err)
	require.NoError(t, db2.Finish(id3, 40, 0, "videos/scene-0001.mp4", nil))
	names, err = db2.DoneScenes()
	require.NoError(t, err)
	require.Equal(t, []string{"scene-0001"}, names)
	runs, err = db2.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	latest, err := db2.Latest("scene-0002")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, latest.Status)
	latest, err = db2.Latest("scene-9999")
	require.NoError(t, err)
	require.Nil(t, latest)
}
