package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mcpherrinm/potwatch/internal/store"
)

var eventsLimit int64

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events stored in Redis",
	Long:  "List the most recent events the run command stored in Redis, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := conf.GetString("redis.addr")
		if addr == "" {
			return fmt.Errorf("redis address not configured")
		}
		sink := store.NewRedisSink(addr, conf.GetString("redis.password"), conf.GetInt("redis.db"), conf.GetString("sensor.id"))
		defer sink.Close()

		recs, err := sink.RecentEvents(cmd.Context(), eventsLimit)
		if err != nil {
			return err
		}
		printStoredEvents(cmd.OutOrStdout(), recs)
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int64VarP(&eventsLimit, "limit", "n", 10, "number of events to list")
	rootCmd.AddCommand(eventsCmd)
}

func printStoredEvents(w io.Writer, recs []store.EventRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No stored events")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %-14s %7.1f g  %s\n", formatTS(r.TS), r.Code, r.Weight, r.SensorID)
	}
}
