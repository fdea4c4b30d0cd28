package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRecord(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObserveExtraction("OVERWORLD", "QUARRY", 3, 1)
	c.ObserveExtraction("OVERWORLD", "QUARRY", 0, 2)
	c.SessionEvent("COMPLETED")
	c.SetSessions(4, 1)
	c.ObserveSave(time.Millisecond, nil)
	c.ObserveSave(time.Millisecond, errors.New("disk full"))

	if got := testutil.ToFloat64(c.CellsExtracted.WithLabelValues("OVERWORLD", "QUARRY")); got != 2 {
		t.Fatalf("cells=%v", got)
	}
	if got := testutil.ToFloat64(c.ItemsRouted); got != 3 {
		t.Fatalf("routed=%v", got)
	}
	if got := testutil.ToFloat64(c.ItemsDropped); got != 3 {
		t.Fatalf("dropped=%v", got)
	}
	if got := testutil.ToFloat64(c.SessionEvents.WithLabelValues("COMPLETED")); got != 1 {
		t.Fatalf("events=%v", got)
	}
	if testutil.ToFloat64(c.ActiveSessions) != 4 || testutil.ToFloat64(c.WaitingStorage) != 1 {
		t.Fatalf("gauges not set")
	}
	if got := testutil.ToFloat64(c.SaveErrors); got != 1 {
		t.Fatalf("save errors=%v", got)
	}
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *Collectors
	c.ObserveExtraction("w", "p", 1, 1)
	c.SessionEvent("x")
	c.SetSessions(1, 1)
	c.ObserveSave(time.Second, nil)
}
