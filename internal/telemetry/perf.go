package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	report_perf_rss_mb          = "perf.rss_mb"
	report_perf_cpu_percent     = "perf.cpu_percent"
	report_perf_goroutines      = "perf.goroutines"
	report_perf_child_processes = "perf.child_processes"
	report_perf_sample          = "perf.sample"
)

// PerfSample is a snapshot of the resource usage of this process. Children
// counts live child processes, a browser that was not cleaned up after a
// check shows up there.
type PerfSample struct {
	RssMb      int64
	CpuPercent int64
	Goroutines int64
	Children   int64
}

// errChildCount marks a sample whose other fields are valid but whose child
// process count could not be read.
var errChildCount = errors.New("count child processes")

// noChildren reports whether err only says the process has no children. On
// linux the children are listed with `pgrep -P`, which exits 1 when nothing
// matches.
func noChildren(err error) bool {
	if errors.Is(err, process.ErrorNoChildren) {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

// SamplePerf reads the usage of this process. A failure to count children
// still returns the rest of the sample, with an error wrapping errChildCount.
func SamplePerf(ctx context.Context) (PerfSample, error) {
	sample := PerfSample{Goroutines: int64(runtime.NumGoroutine())}

	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return sample, err
	}
	mem, err := self.MemoryInfoWithContext(ctx)
	if err != nil {
		return sample, err
	}
	sample.RssMb = int64(mem.RSS / 1_000_000)

	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err == nil && len(usage) > 0 {
		sample.CpuPercent = int64(usage[0])
	}

	children, err := self.ChildrenWithContext(ctx)
	if err != nil && !noChildren(err) {
		return sample, fmt.Errorf("%w: %w", errChildCount, err)
	}
	sample.Children = int64(len(children))
	return sample, nil
}

// InstrumentPerfStats reports a PerfSample every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sample, err := SamplePerf(ctx)
				if err != nil {
					tel.ReportWarning(report_perf_sample, err)
					if !errors.Is(err, errChildCount) {
						continue
					}
				}
				tel.ReportCount(report_perf_rss_mb, sample.RssMb)
				tel.ReportCount(report_perf_cpu_percent, sample.CpuPercent)
				tel.ReportCount(report_perf_goroutines, sample.Goroutines)
				if err == nil {
					tel.ReportCount(report_perf_child_processes, sample.Children)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
