package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"mrivolume/pkg/config"
	"mrivolume/pkg/visualization"
	"mrivolume/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := pflag.StringP("config", "c", "mrivolume.yaml", "YAML configuration file")
	initConfig := pflag.Bool("init-config", false, "Write a default configuration file to --config and exit")
	extractSlices := pflag.Bool("extract-slices", false, "Save every slice along all axes as JPEG")
	slicesDir := pflag.String("slices-dir", "", "Directory to save extracted slices")
	httpTimeout := pflag.Duration("http-timeout", 0, "Timeout for remote fetches (0 waits forever)")
	logLevel := pflag.String("log-level", "", "Log level: debug, info, warn, error")
	showMetrics := pflag.Bool("metrics", false, "Print ingestion metrics after loading")
	quiet := pflag.BoolP("quiet", "q", false, "Only print errors")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file-or-url>...\n\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	inputs := pflag.Args()
	if len(inputs) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the config file
	flags := pflag.CommandLine
	if flags.Changed("extract-slices") {
		cfg.Output.ExtractSlices = *extractSlices
	}
	if flags.Changed("slices-dir") {
		cfg.Output.SlicesDir = *slicesDir
	}
	if flags.Changed("http-timeout") {
		cfg.Ingest.HTTPTimeout = *httpTimeout
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = *logLevel
	}
	if *quiet {
		cfg.Output.Verbose = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	reg := prometheus.NewRegistry()

	params := &volume.Params{
		HTTPClient:           &http.Client{Timeout: cfg.Ingest.HTTPTimeout},
		UserAgent:            cfg.Ingest.UserAgent,
		MaxDecompressedBytes: cfg.Ingest.MaxDecompressedBytes,
		Logger:               logger,
		Metrics:              volume.NewMetrics(reg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("MRI VOLUME INGESTION")
		fmt.Println("================================")
		fmt.Printf("Step 1: Ingesting %d volume(s)...\n", len(inputs))
	}

	startTime := time.Now()
	volumes := ingestAll(ctx, params, inputs, logger)
	processingTime := time.Since(startTime)

	if cfg.Output.Verbose {
		fmt.Printf("Ingestion finished in %.2f seconds\n\n", processingTime.Seconds())
		fmt.Println("Step 2: Summarizing volumes...")
	}

	failures := 0
	for i, vol := range volumes {
		if vol == nil || vol.HasError() {
			failures++
			msg := "could not start ingestion"
			if vol != nil {
				msg = vol.ErrorMessage()
			}
			fmt.Fprintf(os.Stderr, "%s: %s\n", inputs[i], msg)
			continue
		}

		if cfg.Output.Verbose {
			printSummary(inputs[i], vol)
		}

		if cfg.Output.ExtractSlices {
			if err := saveSlices(vol, cfg, logger); err != nil {
				level.Warn(logger).Log("msg", "failed to extract slices", "volume", vol.FileName(), "err", err)
			}
		}
	}

	if *showMetrics {
		printMetrics(reg)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// ingestAll starts one Volume per input and waits for all of them.
// A nil entry means the Volume could not be started.
func ingestAll(ctx context.Context, params *volume.Params, inputs []string, logger log.Logger) []*volume.Volume {
	volumes := make([]*volume.Volume, len(inputs))

	var wg sync.WaitGroup
	for i, src := range inputs {
		vol := volume.New(params)
		done := func(*volume.Volume) { wg.Done() }

		wg.Add(1)
		var err error
		if volume.IsURL(src) {
			err = vol.ReadURL(ctx, src, done)
		} else {
			err = vol.ReadPath(ctx, src, done)
		}
		if err != nil {
			level.Error(logger).Log("msg", "could not start ingestion", "source", src, "err", err)
			wg.Done()
			continue
		}
		volumes[i] = vol
	}
	wg.Wait()

	return volumes
}

func printSummary(src string, vol *volume.Volume) {
	h := vol.Header()
	fmt.Printf("\n%s\n", src)
	fmt.Printf("- Header: %s (%s), compression: %s\n", vol.HeaderType(), h.DatatypeName(), vol.Compression())
	fmt.Printf("- Dimensions: %d x %d x %d voxels\n", vol.XDim(), vol.YDim(), vol.ZDim())
	fmt.Printf("- Voxel size: %.3f x %.3f x %.3f mm\n", vol.XSize(), vol.YSize(), vol.ZSize())
	fmt.Printf("- Byte swap: 16-bit=%v, 32-bit=%v\n", vol.Swap16(), vol.Swap32())

	if stats, err := vol.Stats(); err == nil {
		fmt.Printf("- Intensity: min %.3f, max %.3f, mean %.3f, stddev %.3f\n",
			stats.Min, stats.Max, stats.Mean, stats.StdDev)
	}
}

func saveSlices(vol *volume.Volume, cfg *config.Config, logger log.Logger) error {
	viewer, err := visualization.NewViewer(vol, cfg.Output.JPEGQuality)
	if err != nil {
		return err
	}

	base := strings.SplitN(vol.FileName(), ".", 2)[0]
	if base == "" {
		base = "volume"
	}
	root := filepath.Join(cfg.Output.SlicesDir, base)

	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(root, axis)
		n, err := viewer.SaveSliceSequence(axis, axisDir)
		if err != nil {
			return fmt.Errorf("saving %s-axis slices: %w", axis, err)
		}
		level.Info(logger).Log("msg", "saved slices", "volume", vol.FileName(), "axis", axis, "count", n, "dir", axisDir)
	}
	return nil
}

func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to gather metrics: %v\n", err)
		return
	}

	fmt.Println("\nMetrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			switch {
			case m.GetCounter() != nil:
				fmt.Printf("%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				hist := m.GetHistogram()
				fmt.Printf("%s{%s} count=%d sum=%.6f\n", mf.GetName(), strings.Join(labels, ","),
					hist.GetSampleCount(), hist.GetSampleSum())
			}
		}
	}
}

func newLogger(lvl, format string) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var option level.Option
	switch lvl {
	case "debug":
		option = level.AllowDebug()
	case "warn":
		option = level.AllowWarn()
	case "error":
		option = level.AllowError()
	default:
		option = level.AllowInfo()
	}
	return level.NewFilter(logger, option)
}
