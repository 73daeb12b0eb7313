package encode

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tphakala/wavenc/internal/batch"
	"github.com/tphakala/wavenc/internal/codec"
	"github.com/tphakala/wavenc/internal/conf"
	"github.com/tphakala/wavenc/internal/cpuspec"
	"github.com/tphakala/wavenc/internal/diskcheck"
	"github.com/tphakala/wavenc/internal/encoder"
	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/logger"
	"github.com/tphakala/wavenc/internal/observability"
	"github.com/tphakala/wavenc/internal/telemetry"
)

// ErrRunIncomplete is returned when a run ends with rejected, failed or
// unfinished sources
var ErrRunIncomplete = errors.NewStd("encode run did not complete cleanly")

// Run encodes inputs with the given settings and prints a summary to out.
// It returns ErrRunIncomplete when the summary is not clean.
func Run(ctx context.Context, out io.Writer, settings *conf.Settings, inputs []string) error {
	log := logger.Global().Module("encode")
	defer telemetry.Flush()

	jobs, skipped, err := batch.BuildJobs(inputs, batch.DiscoverOptions{
		Recursive:  settings.Input.Recursive,
		Extensions: settings.Input.Extensions,
		OutputDir:  settings.Output.Path,
		OutputExt:  settings.Output.Extension,
		Overwrite:  settings.Encoder.Overwrite,
	})
	if err != nil {
		return err
	}

	ffmpegPath, err := codec.ValidateFFmpegPath(settings.Encoder.FfmpegPath)
	if err != nil {
		return err
	}

	cpu := cpuspec.GetCPUSpec()
	workers := cpu.WorkerCount(settings.Encoder.Threads)
	log.Info("starting encode",
		logger.Int("sources", len(jobs)),
		logger.Int("skipped", len(skipped)),
		logger.Int("workers", workers),
		logger.String("cpu", cpu.BrandName),
		logger.String("ffmpeg", ffmpegPath))

	var (
		encoderRecorder encoder.Recorder
		batchRecorder   batch.Recorder
		metrics         *observability.Metrics
	)
	if settings.Metrics.Enabled {
		metrics, err = observability.NewMetrics()
		if err != nil {
			return err
		}
		encoderRecorder = metrics.Encoder
		batchRecorder = metrics.Encoder

		stop, err := startEndpoint(&settings.Metrics, metrics)
		if err != nil {
			return err
		}
		defer stop()
	}

	poller, closePoller := batch.NewPoller(ctx, settings.Encoder.Poller)
	defer closePoller()

	pool := encoder.NewPool(workers, codec.FFmpegFactory(ffmpegPath),
		encoder.WithBitrate(settings.Encoder.Bitrate),
		encoder.WithCancelCheckInterval(settings.Encoder.CancelEveryFrames),
		encoder.WithRecorder(encoderRecorder),
	)
	orch := batch.NewOrchestrator(pool, poller,
		batch.WithPollInterval(settings.Encoder.PollInterval),
		batch.WithRecorder(batchRecorder),
	)
	orch.Skip(skipped...)
	orch.Add(jobs...)

	if settings.Output.CheckSpace && len(orch.Tasks()) > 0 {
		estimate := batch.EstimateOutputBytes(orch.Tasks(), settings.Encoder.Bitrate)
		report, err := diskcheck.New().Check(spaceCheckDir(settings.Output.Path, orch.Tasks()), estimate)
		if metrics != nil {
			metrics.Encoder.RecordDiskCheck(report.Free, report.Needed)
		}
		if err != nil {
			return err
		}
		log.Debug("output space ok",
			logger.String("path", report.Path),
			logger.Any("free_bytes", report.Free),
			logger.Any("needed_bytes", report.Needed))
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if settings.Output.Report != "" {
		if err := batch.WriteReport(settings.Output.Report, summary); err != nil {
			return err
		}
		log.Info("wrote run report", logger.String("path", settings.Output.Report))
	}

	printSummary(out, summary)
	if !summary.OK() {
		return ErrRunIncomplete
	}
	return nil
}

// startEndpoint serves /metrics until the returned stop function is called
func startEndpoint(settings *conf.MetricsSettings, metrics *observability.Metrics) (func(), error) {
	endpoint, err := observability.NewEndpoint(settings, metrics)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	quit := make(chan struct{})
	if err := endpoint.Start(&wg, quit); err != nil {
		return nil, err
	}
	return func() {
		close(quit)
		wg.Wait()
	}, nil
}

// spaceCheckDir picks the directory whose filesystem receives the output
func spaceCheckDir(outputDir string, tasks []*encoder.Task) string {
	if outputDir != "" {
		return outputDir
	}
	return filepath.Dir(tasks[0].DestinationPath)
}

func printSummary(out io.Writer, s *batch.Summary) {
	fmt.Fprintf(out, "run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  submitted: %d  succeeded: %d  failed: %d  rejected: %d  skipped: %d\n",
		s.Submitted, s.Succeeded, s.FailedCount(), s.Rejected, s.Skipped)
	if s.Interrupted {
		fmt.Fprintf(out, "  interrupted: %d cancelled, %d never started\n", s.Cancelled, s.Abandoned)
	}

	results := make([]string, 0, len(s.Failed))
	for result := range s.Failed {
		results = append(results, result)
	}
	sort.Strings(results)
	for _, result := range results {
		fmt.Fprintf(out, "  %s: %d\n", result, s.Failed[result])
	}

	for _, t := range s.Tasks {
		if t.Result != "" && t.Result != "success" {
			fmt.Fprintf(out, "  %s: %s (%s)\n", t.Source, t.Result, t.Message)
		}
	}
	for _, r := range s.Rejections {
		fmt.Fprintf(out, "  %s: rejected (%s)\n", r.Path, r.Reason)
	}
}
