package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("pending-release", "success", 250*time.Millisecond)
	m.ObserveRun("pending-release", "failure", time.Second)
	m.ObserveRun("reconcile", "failure", time.Second)
	m.IncSkippedCycle()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	ok := findMetric(mfs, "cron_job_runs_total", map[string]string{"job": "pending-release", "outcome": "success"})
	if ok == nil || ok.GetCounter().GetValue() != 1 {
		t.Fatalf("expected one successful release run, got %v", ok)
	}
	failed := findMetric(mfs, "cron_job_runs_total", map[string]string{"job": "reconcile", "outcome": "failure"})
	if failed == nil || failed.GetCounter().GetValue() != 1 {
		t.Fatalf("expected one failed reconcile run, got %v", failed)
	}
	hist := findMetric(mfs, "cron_job_duration_seconds", map[string]string{"job": "pending-release"})
	if hist == nil || hist.GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two duration samples, got %v", hist)
	}
	if last := findMetric(mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": "reconcile"}); last != nil {
		t.Fatal("failed jobs must not move the last success gauge")
	}
	if last := findMetric(mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": "pending-release"}); last == nil || last.GetGauge().GetValue() <= 0 {
		t.Fatalf("expected last success timestamp, got %v", last)
	}
	if skipped := findMetric(mfs, "cron_cycles_skipped_total", nil); skipped == nil || skipped.GetCounter().GetValue() != 1 {
		t.Fatalf("expected one skipped cycle, got %v", skipped)
	}
}

func TestCronJobMetricsNilRegistererIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.ObserveRun("job", "success", time.Second)
	m.IncSkippedCycle()
	var empty *CronJobMetrics
	empty.ObserveRun("job", "failure", time.Second)
}

// findMetric returns the sample of family name whose labels include want.
func findMetric(mfs []*dto.MetricFamily, name string, want map[string]string) *dto.Metric {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric.GetLabel(), want) {
				return metric
			}
		}
	}
	return nil
}

func hasLabels(labels []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, label := range labels {
			if label.GetName() == name && label.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric := findMetric(mfs, name, map[string]string{label: value})
	if metric == nil {
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return metric.GetCounter().GetValue(), nil
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
