package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResolution(t *testing.T) {
	r := New()
	r.Resolution("driver", "exact", 1)
	r.Resolution("driver", "exact", 1)
	r.Resolution("team", "fuzzy", 0.82)
	r.Resolution("team", "review", 0.61)

	if got := testutil.ToFloat64(r.resolutions.WithLabelValues("driver", "exact")); got != 2 {
		t.Errorf("driver/exact = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(r.matchScore); got != 1 {
		t.Errorf("match score series = %d, want 1 (team only)", got)
	}
}

func TestCounters(t *testing.T) {
	r := New()
	r.ReviewFiled("driver")
	r.AliasesAdded("team", 3)
	r.AliasesAdded("team", 0)

	if got := testutil.ToFloat64(r.reviewsFiled.WithLabelValues("driver")); got != 1 {
		t.Errorf("reviews filed = %v", got)
	}
	if got := testutil.ToFloat64(r.aliasesAdded.WithLabelValues("team")); got != 3 {
		t.Errorf("aliases added = %v", got)
	}
}

func TestSyncFinished(t *testing.T) {
	r := New()
	done := time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC)
	r.SyncFinished("openf1", "completed", 12*time.Second, done)
	r.SyncFinished("archive", "failed", time.Second, done)

	if got := testutil.ToFloat64(r.lastSyncStamp.WithLabelValues("openf1")); got != float64(done.Unix()) {
		t.Errorf("last success = %v", got)
	}
	if got := testutil.CollectAndCount(r.lastSyncStamp); got != 1 {
		t.Errorf("failed run set a success timestamp: %d series", got)
	}
	if got := testutil.ToFloat64(r.syncRuns.WithLabelValues("archive", "failed")); got != 1 {
		t.Errorf("failed runs = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Resolution("circuit", "alias", 1)

	path := filepath.Join(t.TempDir(), "collector", "pitwall.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `pitwall_resolver_resolutions_total{entity="circuit",via="alias"} 1`) {
		t.Errorf("textfile = %s", data)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Resolution("driver", "new", 0)
	r.ReviewFiled("driver")
	r.AliasesAdded("driver", 1)
	r.SyncFinished("openf1", "completed", time.Second, time.Now())
	if err := r.WriteTextfile("/nonexistent/x.prom"); err != nil {
		t.Errorf("nil recorder wrote: %v", err)
	}
}
