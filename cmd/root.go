package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcpherrinm/potwatch/internal/events"
	"github.com/mcpherrinm/potwatch/internal/monitor"
	"github.com/mcpherrinm/potwatch/internal/notify"
	"github.com/mcpherrinm/potwatch/internal/store"
)

var version = "0.1.0"

var (
	cfgFile string
	conf    = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "potwatch",
	Short:         "Watch a coffee pot scale and report pot events",
	Long:          "Track weight samples from a coffee pot scale, detect when a fresh pot is placed or the pot is removed, and report events and periodic weights.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(conf, cfgFile)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text or json)")
	pf.Int("buffer-size", 1000, "number of samples kept in history")
	pf.Float64("debounce", 600, "minimum seconds between two events of the same kind")
	pf.String("sensor-id", "csn-coffee-pot", "sensor identifier in outbound messages")
	pf.String("notify-url", "", "HTTP endpoint receiving events and weight reports")
	pf.String("redis-addr", "", "Redis address for storing events and weight reports")

	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"log.format":      "log-format",
		"buffer.size":     "buffer-size",
		"detect.debounce": "debounce",
		"sensor.id":       "sensor-id",
		"notify.url":      "notify-url",
		"redis.addr":      "redis-addr",
	} {
		if err := conf.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	setDefaults(conf)
}

func setDefaults(v *viper.Viper) {
	def := monitor.DefaultConfig()
	th := def.Thresholds

	v.SetDefault("buffer.size", def.BufferSize)
	v.SetDefault("events.size", def.EventLogSize)
	v.SetDefault("stats.size", def.StatsSize)
	v.SetDefault("stats.duration", def.StatsDuration)
	v.SetDefault("detect.full_weight", th.FullWeight)
	v.SetDefault("detect.full_tolerance", th.FullTolerance)
	v.SetDefault("detect.full_window", th.FullWindow)
	v.SetDefault("detect.removed_tolerance", th.RemovedTolerance)
	v.SetDefault("detect.removed_window", th.RemovedWindow)
	v.SetDefault("detect.stable_deviation", th.StableDeviation)
	v.SetDefault("detect.stable_window", th.StableWindow)
	v.SetDefault("detect.debounce", th.Debounce)
	v.SetDefault("weight.interval", def.WeightInterval)
	v.SetDefault("weight.window", def.WeightWindow)
	v.SetDefault("display.weight_empty", 1650)
	v.SetDefault("sensor.id", "csn-coffee-pot")
	v.SetDefault("sensor.type", "coffee_pot")
	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func loadConfig(v *viper.Viper, file string) error {
	v.SetEnvPrefix("POTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

func monitorConfig(v *viper.Viper) monitor.Config {
	return monitor.Config{
		BufferSize:    v.GetInt("buffer.size"),
		EventLogSize:  v.GetInt("events.size"),
		StatsSize:     v.GetInt("stats.size"),
		StatsDuration: v.GetFloat64("stats.duration"),
		Thresholds: events.Thresholds{
			FullWeight:       v.GetFloat64("detect.full_weight"),
			FullTolerance:    v.GetFloat64("detect.full_tolerance"),
			FullWindow:       v.GetFloat64("detect.full_window"),
			RemovedTolerance: v.GetFloat64("detect.removed_tolerance"),
			RemovedWindow:    v.GetFloat64("detect.removed_window"),
			StableDeviation:  v.GetFloat64("detect.stable_deviation"),
			StableWindow:     v.GetFloat64("detect.stable_window"),
			Debounce:         v.GetFloat64("detect.debounce"),
		},
		WeightInterval: v.GetFloat64("weight.interval"),
		WeightWindow:   v.GetFloat64("weight.window"),
	}
}

func newLogger(v *viper.Viper, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	switch format := v.GetString("log.format"); format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}

// buildNotifier assembles the configured delivery targets. Deliveries are
// always logged; HTTP and Redis are added when configured. The returned
// func releases any connections.
func buildNotifier(ctx context.Context, v *viper.Viper, log logrus.FieldLogger) (monitor.Notifier, func()) {
	targets := notify.Multi{notify.Log{Logger: log}}
	cleanup := func() {}

	if url := v.GetString("notify.url"); url != "" {
		targets = append(targets, notify.NewHTTP(notify.HTTPConfig{
			URL:         url,
			HeaderKey:   v.GetString("notify.header_key"),
			HeaderValue: v.GetString("notify.header_value"),
			SensorID:    v.GetString("sensor.id"),
			SensorType:  v.GetString("sensor.type"),
			Version:     version,
			Timeout:     v.GetDuration("notify.timeout"),
		}))
		log.WithField("url", url).Info("posting to feed")
	}

	if addr := v.GetString("redis.addr"); addr != "" {
		sink := store.NewRedisSink(addr, v.GetString("redis.password"), v.GetInt("redis.db"), v.GetString("sensor.id"))
		if err := sink.Check(ctx); err != nil {
			log.WithError(err).Warn("redis ping failed")
		} else {
			logLatestEvent(ctx, sink, log)
		}
		targets = append(targets, sink)
		cleanup = func() {
			if err := sink.Close(); err != nil {
				log.WithError(err).Warn("redis close failed")
			}
		}
	}

	return targets, cleanup
}

func logLatestEvent(ctx context.Context, sink *store.RedisSink, log logrus.FieldLogger) {
	rec, err := sink.LatestEvent(ctx)
	switch {
	case err != nil:
		log.WithError(err).Warn("reading last stored event failed")
	case rec == nil:
		log.Info("no stored events")
	default:
		log.WithFields(logrus.Fields{"ts": rec.TS, "code": rec.Code, "weight": rec.Weight}).Info("last stored event")
	}
}
