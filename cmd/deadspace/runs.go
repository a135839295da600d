package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/deadspace/internal/db"
	"github.com/banshee-data/deadspace/internal/deadspace/storage/sqlite"
)

// listRuns prints recent runs, or the segments of one run when -id is set.
func listRuns(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(out)
	dbPath := fs.String("db", defaultDBPath, "Run history database")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	runID := fs.String("id", "", "Show the segments of one run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer database.Close()
	store := sqlite.NewRunStore(database.DB)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if *runID != "" {
		run, err := store.GetRun(*runID)
		if err != nil {
			return err
		}
		segments, err := store.ListSegments(run.RunID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "Run %s (%s) %s\n", run.RunID, run.Status, run.SourcePath)
		if run.ErrorMessage != "" {
			fmt.Fprintf(tw, "Error: %s\n", run.ErrorMessage)
		}
		fmt.Fprintln(tw, "ORDINAL\tSTART\tCOUNT\tREAD\tRETAINED\tSHORT")
		for _, s := range segments {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%v\n", s.Ordinal, s.Start, s.Count, s.Read, s.Retained, s.Short)
		}
		return nil
	}

	runs, err := store.ListRuns(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(tw, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tFRAMES\tRETAINED\tDURATION\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Status,
			r.TotalFrames,
			r.RetainedFrames,
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			r.SourcePath,
		)
	}
	return nil
}
