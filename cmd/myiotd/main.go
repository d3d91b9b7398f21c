// Command myiotd wires the value model, store, bus, persister, supervisor,
// and derived-event detectors into a running process, in the dependency
// order spec.md §2 lays out: value model → store → bus → persister →
// supervisor → derived-event services.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/myiotd/myiot-core/internal/api"
	"github.com/myiotd/myiot-core/internal/bus"
	"github.com/myiotd/myiot-core/internal/config"
	"github.com/myiotd/myiot-core/internal/detector"
	"github.com/myiotd/myiot-core/internal/metrics"
	"github.com/myiotd/myiot-core/internal/persister"
	"github.com/myiotd/myiot-core/internal/runtimeEnv"
	"github.com/myiotd/myiot-core/internal/store"
	"github.com/myiotd/myiot-core/internal/supervisor"
	"github.com/myiotd/myiot-core/pkg/log"
)

func main() {
	cliInit()

	if flagVersion {
		fmt.Println("myiotd (development build)")
		os.Exit(0)
	}

	switch {
	case flagSilent:
		log.SetLevel("warn")
	case flagVerbose:
		log.SetLevel("debug")
	default:
		log.SetLevel("info")
	}
	log.SuppressTimestamps(flagSuppressTimestamps)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	st, err := store.Open(cfg.DB)
	if err != nil {
		log.Fatalf("store: %s", err)
	}
	defer st.Close()

	b := bus.New()
	b.Spawn()

	p, err := persister.New(st, persister.DefaultFlushInterval)
	if err != nil {
		log.Fatalf("persister: %s", err)
	}
	if err := p.Run(b.AddReceiver(), b.AddSender()); err != nil {
		log.Fatalf("persister: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sup := supervisor.New(b.AddSender(), supervisor.DefaultCooldown)
	wireServices(ctx, cfg, st, sup, b)
	srv := startAPI(cfg, st)

	runtimeEnv.SystemdNotify(true, "running")
	waitForShutdown(cancel, srv)
	log.Info("myiotd: graceful shutdown complete")
}

// wireServices pattern-matches each configured services.<id> entry's kind
// tag once at startup and hands off to the matching task body under a
// Supervisor restart loop.
// Only the "threshold" and "anomaly" kinds are implemented by core; any
// other kind is logged and skipped, since its adapter lives outside this
// module's scope.
func wireServices(ctx context.Context, cfg config.Config, st *store.Store, sup *supervisor.Supervisor, b *bus.Bus) {
	for id, svc := range cfg.Services {
		id, svc := id, svc

		switch svc.Kind {
		case "threshold":
			th, err := newThresholdFromOptions(id, svc.Options)
			if err != nil {
				log.Errorf("config: service %s: %s", id, err)
				continue
			}
			go sup.Run(ctx, id, func(ctx context.Context) error {
				th.Run(b.AddReceiver(), b.AddSender())
				return ctx.Err()
			})

		case "anomaly":
			an, err := newAnomalyFromOptions(id, svc.Options)
			if err != nil {
				log.Errorf("config: service %s: %s", id, err)
				continue
			}
			if err := an.Bootstrap(st); err != nil {
				log.Warnf("config: service %s: bootstrap from store: %s", id, err)
			}
			go sup.Run(ctx, id, func(ctx context.Context) error {
				an.Run(b.AddReceiver(), b.AddSender())
				return ctx.Err()
			})

		default:
			log.Warnf("config: service %s has kind %q, not implemented by core", id, svc.Kind)
		}
	}
}

func newThresholdFromOptions(serviceID string, opts map[string]interface{}) (*detector.Threshold, error) {
	source, ok := opts["source_sensor_id"].(string)
	if !ok {
		return nil, fmt.Errorf("missing source_sensor_id")
	}
	low, lok := opts["low"].(float64)
	high, hok := opts["high"].(float64)
	if !lok || !hok {
		return nil, fmt.Errorf("missing low/high")
	}
	return detector.NewThreshold(serviceID, source, low, high), nil
}

func newAnomalyFromOptions(serviceID string, opts map[string]interface{}) (*detector.Anomaly, error) {
	source, ok := opts["source_sensor_id"].(string)
	if !ok {
		return nil, fmt.Errorf("missing source_sensor_id")
	}
	sampleSize := 0
	if n, ok := opts["sample_size"].(float64); ok {
		sampleSize = int(n)
	}
	sigma := detector.DefaultSigma
	if s, ok := opts["sigma"].(float64); ok {
		sigma = s
	}
	return detector.NewAnomaly(serviceID, source, sampleSize, sigma), nil
}

func startAPI(cfg config.Config, st *store.Store) *http.Server {
	a := api.New(st)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: a.Router(),
	}
	go func() {
		log.Infof("api: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("api: %s", err)
		}
	}()
	return srv
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drives the teacher's
// own graceful-shutdown sequence: notify systemd, cancel every supervised
// task's context, and give the HTTP server a bounded window to drain
// in-flight requests before returning.
func waitForShutdown(cancel context.CancelFunc, srv *http.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotify(false, "shutting down")
	cancel()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("api: shutdown: %s", err)
	}
}
