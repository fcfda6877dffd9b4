// Command execpool-demo drives a pool.ThreadPool from the command line:
// it resolves worker-pool settings from an optional YAML file and CLI
// flags, submits a batch of synthetic tasks, waits for all of them
// through an errgroup, and prints a final Report() snapshot. It also
// optionally serves the pool's Prometheus metrics over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	execpoolprom "github.com/nexuslabs/exec-pool/observability/prometheus"
	"github.com/nexuslabs/exec-pool/pool"
	"github.com/nexuslabs/exec-pool/queue"
)

func main() {
	app := &cli.App{
		Name:  "execpool-demo",
		Usage: "exercise a pool.ThreadPool from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "execpool.yaml", Usage: "optional YAML config file"},
			&cli.StringFlag{Name: "policy", Value: "fifo", Usage: "pop policy: fifo, lifo, prio, rand"},
			&cli.IntFlag{Name: "min", Value: 1, Usage: "minimum worker count"},
			&cli.IntFlag{Name: "max", Value: 4, Usage: "maximum worker count"},
			&cli.IntFlag{Name: "init", Value: 2, Usage: "initial worker count"},
			&cli.IntFlag{Name: "tasks", Value: 10, Usage: "number of synthetic tasks to submit"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "if set, serve Prometheus metrics at this address (e.g. :2112)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "execpool-demo:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fcfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}

	policyName := c.String("policy")
	minWorkers := c.Int("min")
	maxWorkers := c.Int("max")
	initWorkers := c.Int("init")

	if !c.IsSet("policy") && fcfg.Policy != "" {
		policyName = fcfg.Policy
	}
	if !c.IsSet("min") && fcfg.MinWorkers != 0 {
		minWorkers = fcfg.MinWorkers
	}
	if !c.IsSet("max") && fcfg.MaxWorkers != 0 {
		maxWorkers = fcfg.MaxWorkers
	}
	if !c.IsSet("init") && fcfg.InitWorkers != 0 {
		initWorkers = fcfg.InitWorkers
	}

	policyKind, err := parsePolicy(policyName)
	if err != nil {
		return err
	}

	var exporter *execpoolprom.MetricsExporter
	var poller *execpoolprom.SnapshotPoller
	var server *http.Server
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		exporter, err = execpoolprom.NewMetricsExporter("execpool_demo", reg, execpoolprom.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("execpool-demo: building exporter: %w", err)
		}
		poller = execpoolprom.NewSnapshotPoller(exporter, 500*time.Millisecond)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	cfg := pool.Config{
		Policy:      policyKind,
		MinWorkers:  minWorkers,
		MaxWorkers:  maxWorkers,
		InitWorkers: initWorkers,
		Logger:      pool.NewSlogLogger(logger),
	}
	if exporter != nil {
		cfg.Metrics = exporter
	}

	p, err := pool.New(cfg)
	if err != nil {
		return fmt.Errorf("execpool-demo: building pool: %w", err)
	}
	defer p.Release()

	if poller != nil {
		poller.SetProvider(p)
		poller.Start(c.Context)
		defer poller.Stop()
	}

	n := c.Int("tasks")
	logger.Info("submitting tasks", slog.Int("count", n), slog.String("policy", policyKind.String()))

	group, _ := errgroup.WithContext(c.Context)
	results := make([]int, n)
	for i := 0; i < n; i++ {
		fut := p.Submit(taskBody(i))
		group.Go(func() error {
			v, err := fut.Get()
			if err != nil {
				return err
			}
			results[i] = v.(int)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("execpool-demo: task batch failed: %w", err)
	}

	report := p.Report()
	fmt.Printf("completed %d tasks (sample results: %v)\n", n, results[:min(n, 5)])
	fmt.Printf("report: running=%d cancel_wait=%d cancelled=%d queue_depth=%d\n",
		report.Running, report.CancelWait, report.Cancelled, p.QueueDepth())

	return nil
}

func taskBody(i int) func() (any, error) {
	return func() (any, error) {
		time.Sleep(time.Millisecond)
		return i * i, nil
	}
}

func parsePolicy(name string) (queue.PolicyKind, error) {
	switch strings.ToLower(name) {
	case "fifo":
		return queue.FIFO, nil
	case "lifo":
		return queue.LIFO, nil
	case "prio":
		return queue.PRIO, nil
	case "rand":
		return queue.RAND, nil
	default:
		return 0, fmt.Errorf("execpool-demo: unknown policy %q (want fifo, lifo, prio, rand)", name)
	}
}
