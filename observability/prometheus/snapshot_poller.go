package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/nexuslabs/exec-pool/pool"
)

// ReportProvider is the subset of pool.ThreadPool a SnapshotPoller
// polls. An interface keeps this package testable without a real
// pool.ThreadPool.
type ReportProvider interface {
	Report() pool.Report
	QueueDepth() int
}

// SnapshotPoller periodically exports a pool's Report()/QueueDepth()
// snapshot into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration
	exporter *MetricsExporter

	mu       sync.Mutex
	provider ReportProvider

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a poller that writes into exporter's
// gauges every interval.
func NewSnapshotPoller(exporter *MetricsExporter, interval time.Duration) *SnapshotPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &SnapshotPoller{interval: interval, exporter: exporter}
}

// SetProvider installs (or replaces) the pool being polled.
func (p *SnapshotPoller) SetProvider(provider ReportProvider) {
	p.mu.Lock()
	p.provider = provider
	p.mu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	cancel()
	<-done

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.mu.Lock()
	provider := p.provider
	p.mu.Unlock()

	if provider == nil {
		return
	}

	p.exporter.RecordWorkerReport(provider.Report())
	p.exporter.RecordQueueDepth(provider.QueueDepth())
}
