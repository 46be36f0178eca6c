package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsRecordsRunsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("low_stock_scan", 250*time.Millisecond)
	m.IncSuccess("low_stock_scan")
	m.IncFailure("low_stock_scan")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "result", "success"); err != nil {
		t.Fatalf("fetch success runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 success run, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "result", "failure"); err != nil {
		t.Fatalf("fetch failure runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 failure run, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "low_stock_scan"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCronJobMetricsNoopWithoutRegistry(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveDuration("noop", time.Second)
	m.IncSuccess("noop")
	m.IncFailure("noop")

	m = NewCronJobMetrics(nil)
	m.ObserveDuration("noop", time.Second)
	m.IncSuccess("noop")
	m.IncFailure("noop")
}
