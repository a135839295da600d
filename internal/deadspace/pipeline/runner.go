package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l2background"
	"github.com/banshee-data/deadspace/internal/deadspace/storage/sqlite"
	"github.com/banshee-data/deadspace/internal/fsutil"
	"github.com/banshee-data/deadspace/internal/timeutil"
)

// ErrMuxFailure is returned by Process when the retained video was written
// but the audio could not be attached. The silent file is left in place.
var ErrMuxFailure = errors.New("audio remux failed")

// RunRecorder persists run history. The sqlite RunManager implements it.
type RunRecorder interface {
	StartRun(sourcePath string, params sqlite.RunParams) (string, error)
	RecordSegment(seg sqlite.RunSegment) error
	CompleteRun(stats sqlite.RunStats) error
	FailRun(errMsg string) error
}

// OutputSequence is the joined result of a run.
type OutputSequence struct {
	// Frames are the retained frames in strictly increasing capture index.
	Frames []l1frames.Frame

	TotalFrames   int // as reported by the source
	TrainedFrames int
	Plan          SegmentPlan
	Segments      []SegmentResult // in plan order
	Dimensions    image.Point
	SourceFPS     float64
}

// Indices returns the capture index of every retained frame.
func (s *OutputSequence) Indices() []int {
	out := make([]int, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Index
	}
	return out
}

// FramesRead sums the frames read by all workers.
func (s *OutputSequence) FramesRead() int {
	n := 0
	for _, r := range s.Segments {
		n += r.Read
	}
	return n
}

// Report summarises Process.
type Report struct {
	RunID         string
	SourcePath    string
	OutputPath    string // final artifact; the silent file when remux failed or was skipped
	SilentPath    string
	TotalFrames   int
	TrainedFrames int
	Segments      int
	FramesRead    int
	Retained      int
	ShortSegments int
	Muxed         bool
	Duration      time.Duration
}

// Runner runs the pipeline against one set of collaborators. Source is
// required; Sink is required for Export and Process. The rest are optional.
type Runner struct {
	Config Config

	Source   l1frames.Opener
	Sink     l1frames.SinkOpener
	Remuxer  l1frames.Remuxer
	Recorder RunRecorder
	Observer Observer
	// Backend builds the model and classifiers. Nil uses GoBackend.
	Backend Backend

	// FS removes the silent intermediate after a successful remux. Nil
	// keeps it.
	FS    fsutil.FileSystem
	Clock timeutil.Clock
}

// NewRunner returns a Runner with the real clock.
func NewRunner(cfg Config, src l1frames.Opener, sink l1frames.SinkOpener) *Runner {
	return &Runner{Config: cfg, Source: src, Sink: sink, Clock: timeutil.RealClock{}}
}

func (r *Runner) backend() Backend {
	if r.Backend == nil {
		return GoBackend{}
	}
	return r.Backend
}

func (r *Runner) clock() timeutil.Clock {
	if r.Clock == nil {
		return timeutil.RealClock{}
	}
	return r.Clock
}

// Run trains the background model, splits the clip and classifies every
// segment concurrently. The returned frames are ordered by the plan, never
// by worker completion.
func (r *Runner) Run(ctx context.Context, srcPath string) (*OutputSequence, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r.Source == nil {
		return nil, errors.New("pipeline: no frame source configured")
	}

	seq, err := r.train(ctx, srcPath)
	if err != nil {
		return nil, err
	}
	model := seq.model
	defer closeIfCloser(model)

	plan, err := PlanSegments(seq.TotalFrames, cfg.MinSegmentFrames)
	if err != nil {
		return nil, err
	}
	seq.Plan = plan
	diagf("frame count %d, %d segments of %d frames (last %d)",
		seq.TotalFrames, len(plan), plan[0].Count, plan[len(plan)-1].Count)

	var workerModel ForegroundModel = model
	if cfg.LearningMode == LearningFrozen {
		if s, ok := model.(Snapshotter); ok {
			snap, err := s.Snapshot()
			if err != nil {
				return nil, err
			}
			workerModel = snap
		} else {
			opsf("%s backend cannot snapshot its model; workers share the live model", r.backend().Name())
		}
	}

	results := make([]SegmentResult, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.MaxWorkers > 0 {
		g.SetLimit(cfg.MaxWorkers)
	}
	for i, seg := range plan {
		g.Go(func() error {
			res, err := r.runWorker(gctx, srcPath, i, seg, workerModel)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seq.Segments = results
	frames, err := concatenate(plan, results)
	if err != nil {
		return nil, err
	}
	seq.Frames = frames
	return &seq.OutputSequence, nil
}

// closeIfCloser releases backends that hold native resources.
func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

type trainedRun struct {
	OutputSequence
	model TrainableModel
}

// train opens a handle used only for training and closes it before any
// worker starts.
func (r *Runner) train(ctx context.Context, srcPath string) (*trainedRun, error) {
	reader, err := r.Source.Open(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("open training handle: %w", err)
	}
	defer reader.Close()

	model := r.backend().NewModel(r.Config.Background)
	n, err := model.Train(ctx, reader, r.Config.TrainFrames)
	if err != nil {
		closeIfCloser(model)
		return nil, fmt.Errorf("train background model: %w", err)
	}
	if !model.Trained() {
		closeIfCloser(model)
		return nil, fmt.Errorf("train background model on %s: %w", srcPath, l2background.ErrModelNotTrained)
	}
	if n < r.Config.TrainFrames {
		opsf("training stopped at end of clip after %d of %d frames", n, r.Config.TrainFrames)
	}

	return &trainedRun{
		OutputSequence: OutputSequence{
			TotalFrames:   reader.FrameCount(),
			TrainedFrames: n,
			Dimensions:    reader.Dimensions(),
			SourceFPS:     reader.FrameRate(),
		},
		model: model,
	}, nil
}

func (r *Runner) runWorker(ctx context.Context, srcPath string, ordinal int, seg Segment, model ForegroundModel) (SegmentResult, error) {
	fail := func(err error) error { return &WorkerError{Ordinal: ordinal, Segment: seg, Err: err} }

	classifier, err := r.backend().NewClassifier(r.Config.Perception)
	if err != nil {
		return SegmentResult{}, fail(err)
	}
	defer closeIfCloser(classifier)
	reader, err := r.Source.Open(ctx, srcPath)
	if err != nil {
		return SegmentResult{}, fail(fmt.Errorf("open: %w", err))
	}
	defer reader.Close()
	if err := reader.Seek(seg.Start); err != nil {
		return SegmentResult{}, fail(fmt.Errorf("seek: %w", err))
	}

	w := &segmentWorker{
		ordinal:    ordinal,
		segment:    seg,
		reader:     reader,
		model:      model,
		classifier: classifier,
		minArea:    r.Config.MinContourArea,
		observer:   r.Observer,
	}
	return w.run(ctx)
}

// concatenate joins retained frames in plan order and checks that indices
// stay strictly increasing and inside their segment.
func concatenate(plan SegmentPlan, results []SegmentResult) ([]l1frames.Frame, error) {
	var out []l1frames.Frame
	last := -1
	for i, res := range results {
		seg := plan[i]
		for _, f := range res.Frames {
			if f.Index < seg.Start || f.Index >= seg.End() {
				return nil, fmt.Errorf("segment %d returned frame %d outside [%d,%d)", i, f.Index, seg.Start, seg.End())
			}
			if f.Index <= last {
				return nil, fmt.Errorf("frame %d follows %d: output out of order", f.Index, last)
			}
			last = f.Index
			out = append(out, f)
		}
	}
	return out, nil
}

// Export writes seq to outPath through the sink at Config.OutputFPS, or the
// source rate when that is zero.
func (r *Runner) Export(ctx context.Context, seq *OutputSequence, outPath string) error {
	if r.Sink == nil {
		return errors.New("pipeline: no frame sink configured")
	}
	fps := r.Config.OutputFPS
	if fps <= 0 {
		fps = seq.SourceFPS
	}

	w, err := r.Sink.Create(ctx, outPath, fps, seq.Dimensions)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	for _, f := range seq.Frames {
		if err := ctx.Err(); err != nil {
			w.Close()
			return err
		}
		if err := w.Write(f); err != nil {
			w.Close()
			return fmt.Errorf("export frame %d: %w", f.Index, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", outPath, err)
	}
	diagf("exported %d frames to %s at %.3g fps", len(seq.Frames), outPath, fps)
	return nil
}

// SilentPath returns the intermediate path Process writes the video-only
// stream to: "clip.mp4" becomes "clip.silent.mp4".
func SilentPath(outPath string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + ".silent" + ext
}

// Process runs the pipeline, exports the retained frames and attaches the
// source audio. When nothing is retained no file is written. A remux failure
// returns ErrMuxFailure together with a report whose OutputPath is the
// silent file.
func (r *Runner) Process(ctx context.Context, srcPath, outPath string) (*Report, error) {
	clock := r.clock()
	start := clock.Now()
	report := &Report{SourcePath: srcPath}

	if r.Recorder != nil {
		params := r.Config.RunParams()
		params.Backend = r.backend().Name()
		runID, err := r.Recorder.StartRun(srcPath, params)
		if err != nil {
			return nil, fmt.Errorf("start run record: %w", err)
		}
		report.RunID = runID
	}

	err := r.process(ctx, srcPath, outPath, report)
	report.Duration = clock.Since(start)

	if r.Recorder != nil {
		if err != nil {
			if ferr := r.Recorder.FailRun(err.Error()); ferr != nil {
				opsf("record failed run %s: %v", report.RunID, ferr)
			}
		} else if cerr := r.Recorder.CompleteRun(sqlite.RunStats{
			OutputPath:     report.OutputPath,
			TotalFrames:    report.TotalFrames,
			TrainedFrames:  report.TrainedFrames,
			SegmentCount:   report.Segments,
			FramesRead:     report.FramesRead,
			RetainedFrames: report.Retained,
		}); cerr != nil {
			return report, fmt.Errorf("complete run record: %w", cerr)
		}
	}
	return report, err
}

func (r *Runner) process(ctx context.Context, srcPath, outPath string, report *Report) error {
	seq, err := r.Run(ctx, srcPath)
	if err != nil {
		return err
	}

	report.TotalFrames = seq.TotalFrames
	report.TrainedFrames = seq.TrainedFrames
	report.Segments = len(seq.Plan)
	report.FramesRead = seq.FramesRead()
	report.Retained = len(seq.Frames)
	for _, res := range seq.Segments {
		if res.Short {
			report.ShortSegments++
		}
		if r.Recorder != nil {
			if err := r.Recorder.RecordSegment(sqlite.RunSegment{
				Ordinal:  res.Ordinal,
				Start:    res.Segment.Start,
				Count:    res.Segment.Count,
				Read:     res.Read,
				Retained: len(res.Frames),
				Short:    res.Short,
			}); err != nil {
				opsf("record segment %d: %v", res.Ordinal, err)
			}
		}
	}
	diagf("retained %d of %d frames read", report.Retained, report.FramesRead)

	if len(seq.Frames) == 0 {
		opsf("no motion found in %s; no output written", srcPath)
		return nil
	}

	silent := outPath
	if r.Remuxer != nil {
		silent = SilentPath(outPath)
	}
	if err := r.Export(ctx, seq, silent); err != nil {
		return err
	}
	report.SilentPath = silent
	report.OutputPath = silent
	if r.Remuxer == nil {
		return nil
	}

	if err := r.Remuxer.Remux(ctx, silent, srcPath, outPath); err != nil {
		opsf("remux failed, silent output kept at %s: %v", silent, err)
		return fmt.Errorf("%w: %w", ErrMuxFailure, err)
	}
	report.OutputPath = outPath
	report.Muxed = true

	if r.FS != nil {
		if err := r.FS.Remove(silent); err != nil {
			opsf("remove intermediate %s: %v", silent, err)
		}
	}
	return nil
}
