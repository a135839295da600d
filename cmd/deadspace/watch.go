package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/banshee-data/deadspace/internal/deadspace/visualiser"
)

// watch prints frame updates streamed by a run started with -visualiser
// until that run ends or ctx is cancelled.
func watch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", visualiser.DefaultConfig().ListenAddr, "Visualiser address of a running deadspace run")
	activeOnly := fs.Bool("active", false, "Only show frames that will be retained")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", *addr, err)
	}
	defer conn.Close()

	stream, err := visualiser.NewClient(conn).StreamFrames(ctx, *activeOnly)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for {
		u, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		state := "idle"
		if u.Active {
			state = "ACTIVE"
		}
		fmt.Fprintf(stdout, "frame %6d  segment %d [%d,%d)  %-6s  regions=%d largest=%.0f fg=%.3f\n",
			u.Index, u.Segment, u.SegmentStart, u.SegmentEnd, state, len(u.Regions), u.LargestArea, u.ForegroundFraction)
	}
}
