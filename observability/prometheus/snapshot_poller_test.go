package prometheus

import (
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nexuslabs/exec-pool/pool"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	rep   pool.Report
	depth int
}

func (f *fakeProvider) Report() pool.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.rep
}

func (f *fakeProvider) QueueDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.depth
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestSnapshotPoller_CollectOnceWritesGauges verifies a single poll cycle
// writes the provider's snapshot into the exporter's gauges
// Given: a poller with a provider reporting fixed counts
// When: collectOnce is invoked directly
// Then: the exporter's worker and queue depth gauges match the provider
func TestSnapshotPoller_CollectOnceWritesGauges(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("execpool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter() error = %v", err)
	}
	provider := &fakeProvider{rep: pool.Report{Running: 2, CancelWait: 1, Cancelled: 0}, depth: 5}
	poller := NewSnapshotPoller(exporter, time.Hour)
	poller.SetProvider(provider)

	// Act
	poller.collectOnce()

	// Assert
	if got := testutil.ToFloat64(exporter.workersRunning); got != 2 {
		t.Fatalf("workersRunning = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.workersCancelWait); got != 1 {
		t.Fatalf("workersCancelWait = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.queueDepth); got != 5 {
		t.Fatalf("queueDepth = %v, want 5", got)
	}
}

// TestSnapshotPoller_CollectOnceWithoutProviderIsNoop verifies a poller
// with no provider installed does not panic or touch collectors
// Given: a poller that never had SetProvider called
// When: collectOnce is invoked
// Then: it returns without touching the exporter
func TestSnapshotPoller_CollectOnceWithoutProviderIsNoop(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("execpool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter() error = %v", err)
	}
	poller := NewSnapshotPoller(exporter, time.Hour)

	// Act and Assert
	poller.collectOnce()
	if got := testutil.ToFloat64(exporter.queueDepth); got != 0 {
		t.Fatalf("queueDepth = %v, want 0", got)
	}
}

// TestSnapshotPoller_StartPollsUntilStop verifies Start polls
// immediately and repeatedly until Stop is called
// Given: a poller with a short interval started against a fake provider
// When: Start runs for a few intervals and Stop is then called
// Then: the provider observed more than one Report() call, and no
// further calls occur after Stop returns
func TestSnapshotPoller_StartPollsUntilStop(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("execpool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter() error = %v", err)
	}
	provider := &fakeProvider{rep: pool.Report{Running: 1}}
	poller := NewSnapshotPoller(exporter, 10*time.Millisecond)
	poller.SetProvider(provider)

	// Act
	poller.Start(t.Context())
	time.Sleep(50 * time.Millisecond)
	poller.Stop()
	countAtStop := provider.callCount()
	time.Sleep(30 * time.Millisecond)

	// Assert
	if countAtStop < 2 {
		t.Fatalf("calls observed before Stop = %d, want at least 2", countAtStop)
	}
	if got := provider.callCount(); got != countAtStop {
		t.Fatalf("calls continued after Stop: before=%d after=%d", countAtStop, got)
	}
}

// TestSnapshotPoller_StartTwiceIsIdempotent verifies a second Start call
// while already running does not spawn a second polling loop
// Given: a started poller
// When: Start is called again
// Then: Stop still cleanly terminates the single loop
func TestSnapshotPoller_StartTwiceIsIdempotent(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("execpool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter() error = %v", err)
	}
	provider := &fakeProvider{rep: pool.Report{Running: 1}}
	poller := NewSnapshotPoller(exporter, 10*time.Millisecond)
	poller.SetProvider(provider)

	// Act
	poller.Start(t.Context())
	poller.Start(t.Context())

	// Assert
	poller.Stop()
	poller.Stop()
}
