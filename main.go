package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BorjaTR/sentinel-hft/collector/api"
	"github.com/BorjaTR/sentinel-hft/collector/config"
	"github.com/BorjaTR/sentinel-hft/collector/format"
	"github.com/BorjaTR/sentinel-hft/collector/live"
	"github.com/BorjaTR/sentinel-hft/collector/model"
	"github.com/BorjaTR/sentinel-hft/collector/prom"
	"github.com/BorjaTR/sentinel-hft/collector/stream"
	"github.com/BorjaTR/sentinel-hft/collector/udp"
	"github.com/BorjaTR/sentinel-hft/collector/ws"
)

func main() {
	cfgPath := flag.String("config", "", "path to sentinel.yml (default: search standard locations)")
	flag.Parse()

	// .env file is optional
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env file")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// One-shot mode: analyze trace files given as arguments and print the
	// snapshot as JSON.
	if flag.NArg() > 0 {
		analyzeFiles(flag.Args(), cfg)
		return
	}

	runDaemon(cfg)
}

func analyzeFiles(paths []string, cfg config.Config) {
	for _, path := range paths {
		snapshot, err := stream.AnalyzeFile(path, analyzerConfig(cfg))
		if err != nil {
			log.Fatalf("analyze %s: %v", path, err)
		}
		out, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			log.Fatalf("marshal snapshot: %v", err)
		}
		fmt.Println(string(out))
	}
}

func analyzerConfig(cfg config.Config) stream.Config {
	return stream.Config{
		WindowSeconds: cfg.Analysis.WindowSeconds,
		BucketSeconds: cfg.Analysis.BucketSeconds,
		AnomalyZScore: cfg.Analysis.AnomalyZScore,
		MaxAnomalies:  cfg.Analysis.MaxAnomaliesTracked,
		ClockHz:       cfg.Clock.FrequencyHz(),
	}
}

func adapterFor(cfg config.Config) format.Adapter {
	switch cfg.UDP.Format {
	case "v1.0":
		return format.V10Adapter{}
	case "v1.2":
		return format.NewV12Adapter(cfg.Clock.FrequencyMHz)
	default:
		return format.V11Adapter{}
	}
}

// guardedAnalyzer serializes access between the UDP receive goroutine and
// the snapshot readers (API, prom scrapes, live ticker, ws pushes).
type guardedAnalyzer struct {
	mu sync.Mutex
	a  *stream.Analyzer
}

func (g *guardedAnalyzer) add(traces []model.StandardTrace) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range traces {
		g.a.Add(t)
	}
}

func (g *guardedAnalyzer) snapshot() model.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.a.Snapshot()
}

func (g *guardedAnalyzer) anomalies() []stream.Anomaly {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.a.Anomalies()
}

func runDaemon(cfg config.Config) {
	guard := &guardedAnalyzer{a: stream.New(analyzerConfig(cfg))}
	log.Printf("analyzer instance %s, clock %.0f MHz", guard.a.InstanceID(), cfg.Clock.FrequencyMHz)

	var statsFn func() udp.Stats
	if cfg.UDP.Enabled {
		collector := udp.NewCollector(cfg.UDP.Addr, adapterFor(cfg))
		collector.OnTraces = guard.add
		collector.OnDrop = func(coreID uint16, expectedSeq, actualSeq uint32) {
			log.Printf("packet loss on core %d: expected seq %d, got %d", coreID, expectedSeq, actualSeq)
		}
		if err := collector.Start(); err != nil {
			log.Fatalf("start udp collector: %v", err)
		}
		defer collector.Stop()
		statsFn = collector.Stats
	}

	if cfg.Prom.Enabled {
		prom.Run(cfg.Prom.Addr, guard.snapshot, statsFn)
		log.Printf("prometheus metrics on %s/metrics", cfg.Prom.Addr)
	}

	if cfg.API.Enabled {
		api.NewServer(guard.snapshot, guard.anomalies, statsFn).Run(cfg.API.Addr)
		log.Printf("http api on %s", cfg.API.Addr)
	}

	if cfg.Websocket.Enabled {
		client := ws.NewClient(cfg.Websocket.URL)
		if err := client.Connect(); err != nil {
			log.Printf("ws: initial connect failed: %v", err)
		}
		client.StartReconnectLoop()
		defer client.Disconnect()

		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				client.Push(guard.snapshot())
			}
		}()
	}

	if cfg.Live.Enabled {
		l := live.New(guard.snapshot, time.Duration(cfg.Live.IntervalSeconds*float64(time.Second)))
		go l.Run()
		defer l.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received %s, shutting down", s)
}
