package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mcpherrinm/potwatch/internal/events"
	"github.com/mcpherrinm/potwatch/internal/monitor"
	"github.com/mcpherrinm/potwatch/internal/store"
)

var replaySave string

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Replay a recorded CSV history and print detected events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon, fired, err := replayFile(cmd, args[0], nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printEvents(out, fired)
		if snap := mon.Snapshot(); snap.HaveStats {
			rec := snap.Stats
			fmt.Fprintf(out, "\nLatest stats at %s: median %.1f, deviation %.1f over %.2fs (%d samples)\n",
				formatTS(rec.TS), rec.Value.Median, rec.Value.Deviation, rec.Value.Duration, rec.Value.Count)
		}

		if replaySave != "" {
			if err := store.SaveCSVFile(replaySave, mon.Samples()); err != nil {
				return fmt.Errorf("save history: %w", err)
			}
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySave, "save", "", "CSV file to save the retained history to")
	rootCmd.AddCommand(replayCmd)
}

// replayFile runs the samples recorded in path through a fresh monitor
// without delivering anything.
func replayFile(cmd *cobra.Command, path string, reg prometheus.Registerer) (*monitor.Monitor, []events.Event, error) {
	log, err := newLogger(conf, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	entries, err := store.LoadCSVFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}

	mon := monitor.New(monitorConfig(conf), nil, log, monitor.NewMetrics(reg))
	fired := mon.Restore(cmd.Context(), entries)
	return mon, fired, nil
}

func printEvents(w io.Writer, fired []events.Event) {
	if len(fired) == 0 {
		fmt.Fprintln(w, "No events detected")
		return
	}
	for _, e := range fired {
		fmt.Fprintf(w, "%s  %-14s %7.1f g\n", formatTS(e.TS), e.Kind.Code(), e.Value)
	}
}

func formatTS(ts float64) string {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).Format("2006-01-02 15:04:05")
}
