package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/scenereel/pkg/kibi"
	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/cyclopcam/scenereel/pkg/nuscenes"
	"github.com/cyclopcam/scenereel/pkg/perfstats"
	"github.com/cyclopcam/scenereel/pkg/render"
	"github.com/cyclopcam/scenereel/pkg/rundb"
	"github.com/cyclopcam/scenereel/pkg/scenes"
	"github.com/cyclopcam/scenereel/pkg/storage"
	"github.com/cyclopcam/scenereel/pkg/videox"
	"golang.org/x/sync/errgroup"
)

var ErrNoFramesRendered = errors.New("No frames rendered")

// Pipeline turns scenes into rendered frames and videos
type Pipeline struct {
	Log       log.Log
	Samples   scenes.SampleSource
	Renderer  *render.Renderer
	Options   Options
	RunDB     *rundb.RunDB       // Optional
	Publisher *storage.Publisher // Optional
}

// SceneResult is the outcome of one scene
type SceneResult struct {
	Scene          string
	Skipped        bool // Already done by a previous run
	References     int  // Number of captures in the scene's chain
	FramesRendered int
	FramesFailed   int
	Video          *videox.Video
	Converted      string // Path of the transcoded video
	Published      []string
	Elapsed        time.Duration
	RenderTime     perfstats.TimeAccumulator // Per successfully rendered frame, all variants
	Err            error
}

func (r *SceneResult) OK() bool {
	return r.Err == nil
}

type Summary struct {
	Scenes  []SceneResult
	OK      int
	Failed  int
	Skipped int
}

func (s *Summary) AnyFailed() bool {
	return s.Failed != 0
}

func New(logger log.Log, samples scenes.SampleSource, renderer *render.Renderer, options Options) *Pipeline {
	if options.Workers < 1 {
		options.Workers = 1
	}
	return &Pipeline{
		Log:      logger,
		Samples:  samples,
		Renderer: renderer,
		Options:  options,
	}
}

func (p *Pipeline) FrameDir(sceneName string) string {
	return filepath.Join(p.Options.OutputRoot, "image", sceneName)
}

func (p *Pipeline) VideoPath(sceneName string) string {
	return filepath.Join(p.Options.OutputRoot, "videos", sceneName+".mp4")
}

// removeFrameOutputs deletes every file that rendering framePath can produce
func removeFrameOutputs(framePath string) {
	for _, fn := range []string{framePath, render.AnnotatedPath(framePath, ".jpg"), render.AnnotatedPath(framePath, ".json")} {
		os.Remove(fn)
	}
}

// FrameName is the file name of the raw frame at index i. The annotated variant adds _bbx.
func FrameName(i int) string {
	return fmt.Sprintf("%06d.jpg", i)
}

// Run processes every scene. A failed scene is recorded in the summary, and does not stop the batch.
// The only error returned is a context error, in which case the summary covers the scenes that were started.
func (p *Pipeline) Run(ctx context.Context, all []nuscenes.Scene) (*Summary, error) {
	results := make([]SceneResult, len(all))
	started := make([]bool, len(all))
	done := p.doneScenes()

	g := errgroup.Group{}
	g.SetLimit(p.Options.Workers)
	for i := range all {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			results[i] = p.runScene(ctx, &all[i], done)
			return nil
		})
	}
	g.Wait()

	summary := &Summary{}
	for i := range all {
		if !started[i] {
			continue
		}
		r := results[i]
		summary.Scenes = append(summary.Scenes, r)
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.OK():
			summary.OK++
		default:
			summary.Failed++
		}
	}
	p.Log.Infof("Finished %v scenes: %v ok, %v failed, %v skipped", len(summary.Scenes), summary.OK, summary.Failed, summary.Skipped)
	return summary, ctx.Err()
}

// doneScenes loads the resume set once, before any worker starts
func (p *Pipeline) doneScenes() map[string]bool {
	done := map[string]bool{}
	if p.RunDB == nil || !p.Options.Resume {
		return done
	}
	names, err := p.RunDB.DoneScenes()
	if err != nil {
		p.Log.Warnf("Failed to read finished scenes from the run index, nothing will be skipped: %v", err)
		return done
	}
	for _, n := range names {
		done[n] = true
	}
	p.Log.Infof("Resuming, %v scenes already done", len(names))
	return done
}

// runScene wraps ProcessScene with the run index. 'done' holds the scenes finished by earlier runs.
func (p *Pipeline) runScene(ctx context.Context, scene *nuscenes.Scene, done map[string]bool) SceneResult {
	if p.RunDB == nil {
		return p.ProcessScene(ctx, scene)
	}
	if p.Options.Resume {
		if done[scene.Name] {
			p.Log.Infof("Skipping %v, already done", scene.Name)
			return SceneResult{Scene: scene.Name, Skipped: true}
		}
		if prev, err := p.RunDB.Latest(scene.Name); err != nil {
			p.Log.Warnf("Failed to query run index for %v: %v", scene.Name, err)
		} else if prev != nil && prev.Status == rundb.StatusFailed {
			p.Log.Infof("Retrying %v, previous attempt failed: %v", scene.Name, prev.Error)
		}
	}
	id, err := p.RunDB.Start(scene.Name, scene.Token)
	if err != nil {
		p.Log.Warnf("%v", err)
	}
	r := p.ProcessScene(ctx, scene)
	if id != 0 {
		videoPath := ""
		if r.Video != nil {
			videoPath = r.Video.Path
		}
		if err := p.RunDB.Finish(id, r.FramesRendered, r.FramesFailed, videoPath, r.Err); err != nil {
			p.Log.Warnf("Failed to record outcome of %v: %v", scene.Name, err)
		}
	}
	return r
}

// ProcessScene renders every capture of the scene's channel, and optionally assembles,
// transcodes, and publishes the scene's video. Failures are returned in SceneResult.Err.
func (p *Pipeline) ProcessScene(ctx context.Context, scene *nuscenes.Scene) SceneResult {
	start := time.Now()
	logger := log.NewPrefixLogger(p.Log, scene.Name)
	r := SceneResult{Scene: scene.Name}
	r.Err = p.processScene(ctx, logger, scene, &r)
	r.Elapsed = time.Since(start)
	if r.Err != nil {
		logger.Errorf("Failed: %v", r.Err)
	} else {
		logger.Infof("Done in %.1f seconds (%v frames, %v failed)", r.Elapsed.Seconds(), r.FramesRendered, r.FramesFailed)
	}
	return r
}

func (p *Pipeline) processScene(ctx context.Context, logger log.Log, scene *nuscenes.Scene, r *SceneResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frameDir := p.FrameDir(scene.Name)
	if err := os.MkdirAll(frameDir, 0755); err != nil {
		return fmt.Errorf("Failed to create frame directory: %w", err)
	}

	refs, err := scenes.WalkChannel(p.Samples, scene, p.Options.Channel)
	if err != nil {
		return err
	}
	r.References = len(refs)
	logger.Infof("Rendering %v %v frames (%v)", len(refs), p.Options.Channel, p.Options.Mode)

	for i, token := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		framePath := filepath.Join(frameDir, FrameName(i))
		// Outputs left by an earlier run must not stand in for this frame if it fails now
		removeFrameOutputs(framePath)
		frameStart := time.Now()
		failed := false
		for _, annotated := range p.Options.Mode.variants() {
			_, err := p.Renderer.Render(ctx, token, framePath, annotated, p.Options.Visibility)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			} else if err != nil {
				logger.Warnf("Frame %06d (%v) failed: %v", i, token, err)
				failed = true
				break
			}
		}
		if failed {
			// A variant that did render must not reach the video on its own
			removeFrameOutputs(framePath)
			r.FramesFailed++
		} else {
			r.FramesRendered++
			r.RenderTime.Time(frameStart)
		}
	}
	if len(refs) != 0 && r.FramesRendered == 0 {
		return fmt.Errorf("%w: all %v frames failed", ErrNoFramesRendered, len(refs))
	}

	logger.Debugf("Average render time %.0f ms per frame (max %.0f ms)", float64(r.RenderTime.Average().Microseconds())/1000, float64(r.RenderTime.Max.Microseconds())/1000)

	if !p.Options.MakeVideo {
		return nil
	}
	video, err := videox.Assemble(ctx, logger, videox.AssembleParams{
		FrameDir:   frameDir,
		OutputPath: p.VideoPath(scene.Name),
		FPS:        p.Options.FPS,
		Codec:      p.Options.Codec,
		Variant:    p.Options.Mode.videoVariant(),
		Exclude:    p.Options.Exclude,
		NewSink:    p.Options.NewSink,
	})
	if err != nil {
		return fmt.Errorf("Video: %w", err)
	}
	r.Video = video
	size := int64(0)
	if st, err := os.Stat(video.Path); err == nil {
		size = st.Size()
	}
	logger.Infof("Wrote %v (%vx%v, %v frames at %v fps, %v)", video.Path, video.Width, video.Height, video.NumFrames, video.FPS, kibi.FormatBytes(size))
	videos := []string{video.Path}

	if p.Options.Transcode {
		converted := videox.ConvertedName(video.Path)
		if err := videox.TranscodeCompatible(video.Path, converted); err != nil {
			return fmt.Errorf("Transcode: %w", err)
		}
		r.Converted = converted
		videos = append(videos, converted)
	}

	if p.Publisher != nil {
		published, err := p.Publisher.PublishScene(ctx, scene.Name, frameDir, videos)
		r.Published = published
		if err != nil {
			return fmt.Errorf("Publish: %w", err)
		}
	}
	return nil
}
