package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcpherrinm/potwatch/internal/buffer"
	"github.com/mcpherrinm/potwatch/internal/monitor"
	"github.com/mcpherrinm/potwatch/internal/source"
	"github.com/mcpherrinm/potwatch/internal/store"
)

var (
	runInput       string
	runLoad        string
	runSave        string
	runRealtime    bool
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process live weight samples",
	Long:  "Read ts,value samples from a file or stdin, detect pot events and deliver them to the configured targets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(conf, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		notifier, cleanup := buildNotifier(ctx, conf, log)
		defer cleanup()

		reg := prometheus.NewRegistry()
		mon := monitor.New(monitorConfig(conf), notifier, log, monitor.NewMetrics(reg))

		if runMetricsAddr != "" {
			srv := serveMetrics(runMetricsAddr, reg, log)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.WithError(err).Warn("metrics shutdown failed")
				}
			}()
		}

		if runLoad != "" {
			entries, err := store.LoadCSVFile(runLoad)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			mon.Restore(ctx, entries)
		}

		in, closeIn, err := openInput(cmd, runInput)
		if err != nil {
			return err
		}
		defer closeIn()

		return process(ctx, source.NewReader(in, runRealtime), mon, log, runSave)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "-", "sample source file, - for stdin")
	runCmd.Flags().StringVar(&runLoad, "load", "", "CSV history to restore before processing")
	runCmd.Flags().StringVar(&runSave, "save", "", "CSV file to save history to on exit")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "pace samples by their timestamps")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "address to serve prometheus metrics on")
	rootCmd.AddCommand(runCmd)
}

func openInput(cmd *cobra.Command, name string) (io.Reader, func(), error) {
	if name == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// process pumps samples into mon, then saves the history to save if set,
// whether or not the input ended cleanly.
func process(ctx context.Context, r *source.Reader, mon *monitor.Monitor, log logrus.FieldLogger, save string) error {
	err := pump(ctx, r, mon, log)
	if save == "" {
		return err
	}
	if serr := store.SaveCSVFile(save, mon.Samples()); serr != nil {
		return errors.Join(err, fmt.Errorf("save history: %w", serr))
	}
	log.WithField("file", save).Info("history saved")
	return err
}

// pump feeds samples from r into mon until the stream ends or ctx is done.
// Reading happens on its own goroutine so a blocked read does not delay
// shutdown; all processing stays on the calling goroutine.
func pump(ctx context.Context, r *source.Reader, mon *monitor.Monitor, log logrus.FieldLogger) error {
	samples := make(chan buffer.Entry[float64])
	errc := make(chan error, 1)

	go func() {
		defer close(samples)
		for {
			e, err := r.Next(ctx)
			if err != nil {
				errc <- err
				return
			}
			select {
			case samples <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	var n int
	for {
		select {
		case <-ctx.Done():
			log.WithField("samples", n).Info("shutdown signal received")
			return nil
		case e, ok := <-samples:
			if !ok {
				log.WithFields(logrus.Fields{"samples": n, "skipped": r.Skipped()}).Info("input finished")
				return readErr(errc)
			}
			mon.Process(ctx, e.TS, e.Value)
			n++
		}
	}
}

func readErr(errc <-chan error) error {
	select {
	case err := <-errc:
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		return nil
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", addr).Info("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return srv
}
