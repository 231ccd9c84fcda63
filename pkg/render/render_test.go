package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/cyclopcam/scenereel/pkg/iox"
	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/cyclopcam/scenereel/pkg/nuscenes"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) (*nuscenes.Catalog, *nuscenes.Sample) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, nuscenes.WriteTestDataset(root, nuscenes.TestDatasetParams{
		Scenes: []nuscenes.TestScene{{Name: "scene-0010", Description: "truck ahead", NumSamples: 2}},
	}))
	cat, err := nuscenes.Open(log.NewTestingLog(t), root, "v1.0-mini")
	require.NoError(t, err)
	first, err := cat.Sample(cat.Scenes[0].FirstSampleToken)
	require.NoError(t, err)
	return cat, first
}

func testOptions() Options {
	opt := DefaultOptions()
	opt.OutputWidth = 640
	return opt
}

func TestRenderRaw(t *testing.T) {
	cat, first := testCatalog(t)
	r := NewRenderer(cat, testOptions())
	out := filepath.Join(t.TempDir(), "000000.jpg")
	res, err := r.Render(context.Background(), first.Data[nuscenes.ChannelCamFront], out, false, geom.VisibilityAny)
	require.NoError(t, err)
	require.Equal(t, out, res.ImagePath)
	require.Empty(t, res.SidecarPath)
	require.Equal(t, 640, res.Width)
	require.Equal(t, 360, res.Height)

	img, err := LoadJPEG(out)
	require.NoError(t, err)
	require.Equal(t, 640, img.Rect.Dx())
	require.Equal(t, 360, img.Rect.Dy())
	require.NoFileExists(t, AnnotatedPath(out, ".json"))
}

func TestRenderAnnotated(t *testing.T) {
	cat, first := testCatalog(t)
	r := NewRenderer(cat, testOptions())
	dir := t.TempDir()
	out := filepath.Join(dir, "000001.jpg")
	token := first.Data[nuscenes.ChannelCamFront]

	res, err := r.Render(context.Background(), token, out, true, geom.VisibilityAny)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "000001_bbx.jpg"), res.ImagePath)
	require.Equal(t, filepath.Join(dir, "000001_bbx.json"), res.SidecarPath)
	require.Len(t, res.Boxes, 1)
	// The annotated render does not produce the plain frame
	require.NoFileExists(t, out)

	// Sidecar round trip reproduces the boxes exactly
	boxes, err := ReadSidecar(res.SidecarPath)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Boxes, boxes); diff != "" {
		t.Fatalf("sidecar round trip mismatch (-want +got):\n%v", diff)
	}

	// Drawing must have changed some pixels relative to the plain frame
	plainPath := filepath.Join(dir, "plain.jpg")
	_, err = r.Render(context.Background(), token, plainPath, false, geom.VisibilityAny)
	require.NoError(t, err)
	plain, err := LoadJPEG(plainPath)
	require.NoError(t, err)
	annotated, err := LoadJPEG(res.ImagePath)
	require.NoError(t, err)
	require.Equal(t, plain.Rect, annotated.Rect)
	changed := 0
	for i := 0; i < len(plain.Pix); i += 4 {
		d := int(plain.Pix[i]) - int(annotated.Pix[i])
		if d > 60 || d < -60 {
			changed++
		}
	}
	require.Greater(t, changed, 100)
}

func TestWriteSidecarEmpty(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "000000_bbx.json")
	require.NoError(t, WriteSidecar(fn, nil))
	raw, err := os.ReadFile(fn)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
	boxes, err := ReadSidecar(fn)
	require.NoError(t, err)
	require.Empty(t, boxes)
}

func TestSidecarRoundTrip(t *testing.T) {
	q := geom.QuaternionFromAxisAngle(geom.Vec3{0.1, 0.2, 0.9}, 1.234567)
	in := []geom.Box{
		{Token: "a", Label: "vehicle.truck", WLH: geom.Vec3{2.5, 8.123456789, 3}, Center: geom.Vec3{-0.1, 1e-7, 33.3333333}, Orientation: q},
		{Token: "b", Label: "human.pedestrian.adult", WLH: geom.Vec3{0.6, 0.7, 1.8}, Center: geom.Vec3{1, 2, 3}, Orientation: geom.IdentityQuaternion},
	}
	records := []SidecarRecord{}
	for i := range in {
		records = append(records, RecordFromBox(&in[i]))
	}
	fn := filepath.Join(t.TempDir(), "x_bbx.json")
	require.NoError(t, WriteSidecar(fn, records))
	out, err := ReadSidecar(fn)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestRenderUnsupportedModality(t *testing.T) {
	cat, first := testCatalog(t)
	r := NewRenderer(cat, testOptions())
	dir := t.TempDir()
	out := filepath.Join(dir, "000000.jpg")
	_, err := r.Render(context.Background(), first.Data["LIDAR_TOP"], out, true, geom.VisibilityAny)
	require.ErrorIs(t, err, ErrUnsupportedModality)
	entries, _ := os.ReadDir(dir)
	require.Empty(t, entries)
}

func TestRenderMissingImage(t *testing.T) {
	cat, first := testCatalog(t)
	token := first.Data[nuscenes.ChannelCamFront]
	sd, _ := cat.SampleData(token)
	require.NoError(t, os.Remove(filepath.Join(cat.DataRoot, sd.Filename)))
	r := NewRenderer(cat, testOptions())
	_, err := r.Render(context.Background(), token, filepath.Join(t.TempDir(), "x.jpg"), false, geom.VisibilityAny)
	require.Error(t, err)
}

func TestRenderEmptyCapture(t *testing.T) {
	cat, first := testCatalog(t)
	token := first.Data[nuscenes.ChannelCamFront]
	sd, _ := cat.SampleData(token)
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataRoot, sd.Filename), nil, 0644))
	r := NewRenderer(cat, testOptions())
	dir := t.TempDir()
	_, err := r.Render(context.Background(), token, filepath.Join(dir, "000000.jpg"), true, geom.VisibilityAny)
	require.ErrorIs(t, err, iox.ErrNotJPEG)
	entries, _ := os.ReadDir(dir)
	require.Empty(t, entries)

	// The next capture of the scene is unaffected
	next, err := cat.Sample(first.Next)
	require.NoError(t, err)
	_, err = r.Render(context.Background(), next.Data[nuscenes.ChannelCamFront], filepath.Join(dir, "000001.jpg"), true, geom.VisibilityAny)
	require.NoError(t, err)
}

func TestOutputSizeEvenHeight(t *testing.T) {
	r := NewRenderer(nil, DefaultOptions())
	w, h, scale := r.outputSize(1600, 900)
	require.Equal(t, 1800, w)
	require.Equal(t, 1012, h)
	require.Equal(t, 1.125, scale)

	r.Options.OutputWidth = 640
	w, h, _ = r.outputSize(1600, 900)
	require.Equal(t, 640, w)
	require.Equal(t, 360, h)

	r.Options.OutputWidth = 0
	w, h, _ = r.outputSize(1600, 900)
	require.Equal(t, 1600, w)
	require.Equal(t, 900, h)
}

func TestRenderCancelled(t *testing.T) {
	cat, first := testCatalog(t)
	r := NewRenderer(cat, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, first.Data[nuscenes.ChannelCamFront], filepath.Join(t.TempDir(), "x.jpg"), false, geom.VisibilityAny)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLabelColor(t *testing.T) {
	require.Equal(t, LabelColor("vehicle.truck"), LabelColor("vehicle.truck"))
	require.Equal(t, uint8(255), LabelColor("vehicle.truck").R)
	require.Equal(t, uint8(99), LabelColor("vehicle.truck").G)
	// Unknown labels hash into the palette, and stay stable
	c := LabelColor("my.custom.class")
	require.Equal(t, c, LabelColor("my.custom.class"))
	require.Contains(t, palette, c)
}

func TestAnnotatedPath(t *testing.T) {
	require.Equal(t, "a/000003_bbx.jpg", AnnotatedPath("a/000003.jpg", ".jpg"))
	require.Equal(t, "a/000003_bbx.json", AnnotatedPath("a/000003.jpg", ".json"))
}
