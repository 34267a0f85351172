// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mamerwiselen/lost-tracker/tracker"
)

func newScoreboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scoreboard",
		Short: "Print the current scoreboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, closeDB, err := opts.tracker()
			if err != nil {
				return err
			}
			defer closeDB()

			return printScoreboard(cmd.Context(), cmd.OutOrStdout(), t, time.Now())
		},
	}
}

// printScoreboard writes one line per group with its position, score,
// speed and when it finished relative to now.
func printScoreboard(ctx context.Context, out io.Writer, t *tracker.Tracker, now time.Time) error {
	board, err := t.Scoreboard(ctx)
	if err != nil {
		return err
	}
	if len(board) == 0 {
		fmt.Fprintln(out, "No scores available yet!")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tGROUP\tSCORE\tPTS/MIN\tSPEED\tFINISHED")
	for _, row := range board {
		finished := "-"
		g, err := t.GetGroup(ctx, row.GroupID)
		if err != nil {
			return err
		}
		if g.FinishTime != nil {
			finished = humanize.RelTime(*g.FinishTime, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			humanize.Ordinal(row.Position),
			row.GroupName,
			humanize.Comma(int64(row.TotalScore)),
			row.PointsPerMinute,
			humanize.Ordinal(row.PPMPosition),
			finished,
		)
	}
	return tw.Flush()
}
