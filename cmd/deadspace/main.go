package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/deadspace/internal/db"
	"github.com/banshee-data/deadspace/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "run":
		opts, err := parseRunFlags(args, os.Stderr)
		if err != nil {
			os.Exit(2)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := execute(ctx, opts, os.Stdout); err != nil {
			log.Fatalf("run failed: %v", err)
		}
	case "watch":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := watch(ctx, args, os.Stdout, os.Stderr); err != nil {
			log.Fatalf("watch: %v", err)
		}
	case "migrate":
		dbPath, rest := splitDBFlag(args)
		if err := db.RunMigrateCommand(rest, dbPath); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	case "runs":
		if err := listRuns(args, os.Stdout); err != nil {
			log.Fatalf("runs: %v", err)
		}
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// splitDBFlag pulls an optional leading "-db <path>" off the migrate args.
func splitDBFlag(args []string) (string, []string) {
	if len(args) >= 2 && (args[0] == "-db" || args[0] == "--db") {
		return args[1], args[2:]
	}
	return defaultDBPath, args
}

func printUsage() {
	fmt.Println(`deadspace - remove frames without motion from fixed-camera video

Usage: deadspace <command> [options]

Commands:
  run        Process a clip: deadspace run [flags] <input> <output>
  migrate    Manage the run history schema: deadspace migrate [-db path] <action>
  runs       List recent runs: deadspace runs [-db path] [-limit n] [-id run]
  watch      Follow a run's frame decisions: deadspace watch [-addr host:port] [-active]
  version    Show version
  help       Show this help message

Run Flags:
  -config <file>        Tuning JSON (see config/tuning.defaults.json)
  -db <path>            Run history database ("" disables history)
  -workers <n>          Bound concurrent segment workers (overrides config)
  -codec <name>         Output video codec (overrides config)
  -listen <addr>        Serve debug routes on addr while running
  -visualiser <addr>    Stream frame decisions over gRPC (see watch)
  -backend <name>       go (default), or opencv in builds tagged gocv
  -report-dir <dir>     Write activity plot, chart and summary to dir
  -preview-dir <dir>    Write annotated PNGs of sampled retained frames
  -synthetic <n>        Use an n-frame generated clip instead of <input>
  -dry-run              Keep output in memory; no ffmpeg needed for synthetic clips
  -trace                Log per-frame decisions

Examples:
  deadspace run -config tuning.json garage.avi garage_motion.mp4
  deadspace run -synthetic 900 -dry-run -report-dir ./report
  deadspace migrate status`)
}
