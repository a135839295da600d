package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/deadspace/internal/config"
	"github.com/banshee-data/deadspace/internal/db"
	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l1frames/ffmpeg"
	"github.com/banshee-data/deadspace/internal/deadspace/monitor"
	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
	"github.com/banshee-data/deadspace/internal/deadspace/storage/sqlite"
	"github.com/banshee-data/deadspace/internal/deadspace/visualiser"
	"github.com/banshee-data/deadspace/internal/fsutil"
	"github.com/banshee-data/deadspace/internal/httputil"
	"github.com/banshee-data/deadspace/internal/monitoring"
	"github.com/banshee-data/deadspace/internal/security"
)

const defaultDBPath = "deadspace.db"

type runOptions struct {
	ConfigPath string
	DBPath     string
	Workers    int
	Codec      string
	Listen     string
	Visualiser string
	Backend    string
	ReportDir  string
	PreviewDir string
	Synthetic  int
	DryRun     bool
	Trace      bool
	Progress   bool

	Input  string
	Output string
}

func parseRunFlags(args []string, stderr io.Writer) (*runOptions, error) {
	opts := &runOptions{}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "Tuning JSON file")
	fs.StringVar(&opts.DBPath, "db", defaultDBPath, "Run history database (empty disables history)")
	fs.IntVar(&opts.Workers, "workers", -1, "Max concurrent segment workers, 0 for unbounded (default from config)")
	fs.StringVar(&opts.Codec, "codec", "", "Output video codec (default from config)")
	fs.StringVar(&opts.Listen, "listen", "", "Debug server address, e.g. localhost:8081")
	fs.StringVar(&opts.Visualiser, "visualiser", "", "Stream frame decisions over gRPC on this address, e.g. localhost:50051")
	fs.StringVar(&opts.Backend, "backend", "go", "Background subtraction and contour backend")
	fs.StringVar(&opts.ReportDir, "report-dir", "", "Directory for activity reports")
	fs.StringVar(&opts.PreviewDir, "preview-dir", "", "Directory for annotated preview frames")
	fs.IntVar(&opts.Synthetic, "synthetic", 0, "Generate an n-frame clip instead of reading <input>")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Encode into memory instead of writing video")
	fs.BoolVar(&opts.Trace, "trace", false, "Log per-frame decisions")
	fs.BoolVar(&opts.Progress, "progress", true, "Show a progress bar")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.Synthetic < 0 {
		return nil, fmt.Errorf("synthetic frame count must be positive, got %d", opts.Synthetic)
	}
	rest := fs.Args()
	if opts.Synthetic > 0 {
		opts.Input = fmt.Sprintf("synthetic:%d", opts.Synthetic)
		if len(rest) > 0 {
			opts.Output = rest[0]
		}
	} else {
		if len(rest) < 1 {
			return nil, fmt.Errorf("input path is required")
		}
		opts.Input = rest[0]
		if len(rest) > 1 {
			opts.Output = rest[1]
		}
	}
	if opts.Output == "" {
		if !opts.DryRun {
			return nil, fmt.Errorf("output path is required unless -dry-run is set")
		}
		opts.Output = "dry-run.mp4"
	}
	return opts, nil
}

// loadTuning resolves the pipeline config and codec from the optional file
// and flag overrides.
func loadTuning(opts *runOptions) (pipeline.Config, string, error) {
	tuning := config.EmptyTuningConfig()
	if opts.ConfigPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(opts.ConfigPath)
		if err != nil {
			return pipeline.Config{}, "", err
		}
	}
	cfg, err := tuning.ToParams()
	if err != nil {
		return pipeline.Config{}, "", fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Workers >= 0 {
		cfg.MaxWorkers = opts.Workers
	}
	codec := tuning.GetVideoCodec()
	if opts.Codec != "" {
		codec = opts.Codec
	}
	return cfg, codec, nil
}

// syntheticSource generates a clip whose middle third contains motion.
func syntheticSource(n int) *l1frames.MemorySource {
	return l1frames.DefaultScene().WithMotion(n/3, 2*n/3).Source(n, 30)
}

func execute(ctx context.Context, opts *runOptions, stdout io.Writer) error {
	if opts.Trace {
		monitoring.SetTraceLogger(log.Printf)
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	} else {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, nil)
	}

	cfg, codec, err := loadTuning(opts)
	if err != nil {
		return err
	}
	if opts.Synthetic == 0 && !opts.DryRun {
		if err := security.ValidateOutputPath(opts.Input, opts.Output, pipeline.SilentPath(opts.Output)); err != nil {
			return err
		}
	}

	tc := ffmpeg.New(codec)
	var source l1frames.Opener = tc
	total := 0
	if opts.Synthetic > 0 {
		src := syntheticSource(opts.Synthetic)
		source = src
		total = src.Count
	} else if !tc.Available() {
		return fmt.Errorf("ffmpeg and ffprobe must be on PATH to read %s", opts.Input)
	} else if info, err := tc.Probe(ctx, opts.Input); err == nil {
		total = info.FrameCount
	}

	backend, err := newBackend(opts.Backend)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cfg, source, tc)
	runner.Backend = backend
	runner.FS = fsutil.OSFileSystem{}
	if opts.DryRun {
		runner.Sink = l1frames.NewMemorySink()
		runner.FS = nil
	} else if opts.Synthetic == 0 {
		runner.Remuxer = tc
	}

	var database *db.DB
	if opts.DBPath != "" {
		database, err = db.NewDB(opts.DBPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer database.Close()
		runner.Recorder = sqlite.NewRunManager(database.DB)
	}

	activity := monitor.NewActivityRecorder()
	observers := pipeline.Observers{activity}
	if opts.PreviewDir != "" {
		observers = append(observers, monitor.NewPreviewWriter(fsutil.OSFileSystem{}, opts.PreviewDir))
	}
	var progress *monitor.Progress
	if opts.Progress {
		progress = monitor.NewProgress(os.Stderr, total, "classifying")
		observers = append(observers, progress)
	}
	if opts.Visualiser != "" {
		vcfg := visualiser.DefaultConfig()
		vcfg.ListenAddr = opts.Visualiser
		publisher := visualiser.NewPublisher(vcfg)
		if err := publisher.Start(); err != nil {
			return fmt.Errorf("start visualiser: %w", err)
		}
		defer publisher.Stop()
		observers = append(observers, publisher)
	}
	runner.Observer = observers

	if opts.Listen != "" {
		_, stopServer, err := serveDebug(opts.Listen, database, activity)
		if err != nil {
			return err
		}
		defer stopServer()
	}

	report, runErr := runner.Process(ctx, opts.Input, opts.Output)
	if progress != nil {
		_ = progress.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if report != nil {
		printReport(stdout, report)
	}
	if opts.ReportDir != "" && report != nil {
		if err := writeReports(fsutil.OSFileSystem{}, opts.ReportDir, report, activity.Samples()); err != nil {
			log.Printf("failed to write reports: %v", err)
		}
	}
	if errors.Is(runErr, pipeline.ErrMuxFailure) {
		log.Printf("audio was not attached; video-only output kept at %s", report.OutputPath)
		return nil
	}
	return runErr
}

func printReport(w io.Writer, r *pipeline.Report) {
	if r.RunID != "" {
		fmt.Fprintf(w, "Run:            %s\n", r.RunID)
	}
	fmt.Fprintf(w, "Source:         %s\n", r.SourcePath)
	fmt.Fprintf(w, "Frames:         %d (trained on %d)\n", r.TotalFrames, r.TrainedFrames)
	fmt.Fprintf(w, "Segments:       %d (%d short)\n", r.Segments, r.ShortSegments)
	fmt.Fprintf(w, "Retained:       %d of %d read\n", r.Retained, r.FramesRead)
	if r.OutputPath == "" {
		fmt.Fprintln(w, "Output:         none (no motion)")
	} else {
		fmt.Fprintf(w, "Output:         %s (audio: %v)\n", r.OutputPath, r.Muxed)
	}
	fmt.Fprintf(w, "Duration:       %s\n", r.Duration.Round(time.Millisecond))
}

type reportSummary struct {
	Report   *pipeline.Report        `json:"report"`
	Activity monitor.ActivitySummary `json:"activity"`
}

// writeReports saves activity.png, activity.html and summary.json to dir.
func writeReports(fs fsutil.FileSystem, dir string, report *pipeline.Report, samples []monitor.ActivitySample) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(reportSummary{Report: report, Activity: monitor.Summarise(samples)}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := fs.WriteFile(filepath.Join(dir, "summary.json"), data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	if err := monitor.SaveActivityPlot(fs, filepath.Join(dir, "activity.png"), samples); err != nil {
		return err
	}
	f, err := fs.Create(filepath.Join(dir, "activity.html"))
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := monitor.RenderActivityChart(f, filepath.Base(report.SourcePath), samples); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}

// serveDebug starts the debug HTTP server and returns its bound address and
// a function that shuts it down. database may be nil when run history is
// disabled.
func serveDebug(addr string, database *db.DB, activity *monitor.ActivityRecorder) (string, func(), error) {
	mux := http.NewServeMux()
	if database != nil {
		if err := database.AttachAdminRoutes(mux); err != nil {
			return "", nil, fmt.Errorf("attach admin routes: %w", err)
		}
		store := sqlite.NewRunStore(database.DB)
		mux.Handle("/runs", httputil.GetOnly(func(w http.ResponseWriter, r *http.Request) {
			runs, err := store.ListRuns(50)
			if err != nil {
				httputil.InternalServerError(w, err.Error())
				return
			}
			httputil.WriteJSONOK(w, runs)
		}))
	}
	mux.Handle("/activity", activity.Handler("live run"))
	mux.Handle("/activity.json", activity.SummaryHandler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server error: %v", err)
		}
	}()
	log.Printf("debug server listening on %s", ln.Addr())

	return ln.Addr().String(), func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("debug server shutdown error: %v", err)
		}
	}, nil
}
