package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/actor"
	"main/internal/bus"
	"main/internal/core"
	"main/internal/feed"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/schema"
	"main/internal/storage"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	envPath := flag.String("env", "", "Path to .env file (default: .env in cwd)")
	feedAddr := flag.String("feed-addr", ":8080", "WebSocket feed listen address (empty=disable)")
	journalDir := flag.String("journal-dir", "", "Record inbound ticks to this journal directory")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable)")
	statsInterval := flag.Duration("stats-interval", 15*time.Second, "Metrics log interval (0=disable)")
	flag.Parse()

	if err := run(*configPath, *envPath, *feedAddr, *journalDir, *pyroscopeAddr, *statsInterval); err != nil {
		logs.Errorf("engine exited, err: %+v", err)
		os.Exit(1)
	}
}

func run(configPath, envPath, feedAddr, journalDir, pyroscopeAddr string, statsInterval time.Duration) error {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	if pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading/engine",
			ServerAddress:   pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	system := actor.NewSystem(loaded.Engine.MailboxCapacity)
	defer system.Close()
	eventBus := bus.New(loaded.Engine.BusCapacity)
	defer eventBus.Close()
	metrics := obs.NewMetrics()

	var opts []core.Option
	if loaded.Storage.Enabled {
		client, err := conn.New(conn.Option{
			Host:     loaded.Storage.Host,
			Port:     loaded.Storage.Port,
			User:     loaded.Storage.User,
			Password: loaded.Storage.Password,
			Database: loaded.Storage.Database,
			SSLMode:  loaded.Storage.SSLMode,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		store, err := storage.New(client.DB())
		if err != nil {
			return err
		}
		opts = append(opts, core.WithStore(store))
		logs.Infof("storage enabled, database: %s", loaded.Storage.Database)
	}

	engine := core.NewEngine(system, eventBus, metrics, opts...)
	for _, spec := range loaded.Accounts {
		engine.RegisterAccount(spec)
	}

	var journal *recorder.Writer
	if journalDir != "" {
		journal, err = recorder.NewWriter(recorder.Config{Dir: journalDir})
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	if feedAddr != "" {
		hub := feed.NewHub()
		topics := make([]string, 0, len(loaded.Instruments)+len(loaded.Accounts))
		for _, instrument := range loaded.Instruments {
			topics = append(topics, bus.TopicInstrument(instrument.Meta.Name))
		}
		for _, spec := range loaded.Accounts {
			topics = append(topics, bus.TopicAccount(spec.ID))
		}
		go hub.Pump(ctx, eventBus, topics...)

		mux := http.NewServeMux()
		mux.Handle("/ws", hub.Handler())
		server := &http.Server{Addr: feedAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf("feed server, err: %+v", err)
			}
		}()
		defer server.Shutdown(context.Background())
		logs.Infof("feed listening on %s", feedAddr)
	}

	if statsInterval > 0 {
		go logStats(ctx, metrics, eventBus, statsInterval)
	}

	if loaded.Replay.Dir != "" {
		go func() {
			if err := replay(ctx, engine, journal, loaded.Replay); err != nil && !errors.Is(err, context.Canceled) {
				logs.Errorf("replay, err: %+v", err)
			}
		}()
	}

	logs.Info("engine started")
	<-sys.Shutdown()
	logs.Info("engine stopping")
	cancel()
	return nil
}

// replay feeds journaled ticks and order requests into the engine, and
// re-journals ticks when a recording journal is attached.
func replay(ctx context.Context, engine *core.Engine, journal *recorder.Writer, cfg ops.ReplayConfig) error {
	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:        cfg.Dir,
		FilePrefix: cfg.FilePrefix,
		Speed:      cfg.Speed,
	})
	if err != nil {
		return err
	}

	return playback.Run(ctx, recorder.Dispatch{
		Tick: func(ctx context.Context, header schema.EventHeader, tick model.Tick) error {
			if journal != nil {
				if err := journal.RecordTick(tick, header.Seq); err != nil {
					logs.Errorf("journal tick, err: %+v", err)
				}
			}
			if _, err := engine.Tick(ctx, tick); err != nil {
				logs.Errorf("tick %s, err: %+v", tick.Name, err)
			}
			return nil
		},
		Order: func(ctx context.Context, _ schema.EventHeader, account string, order model.Order) error {
			responses, err := engine.PlaceOrder(ctx, account, order)
			if err != nil {
				logs.Errorf("place order for %s, err: %+v", account, err)
				return nil
			}
			for _, resp := range responses {
				if !resp.OK() {
					logs.Infof("order rejected for %s: %v", account, resp.Errors)
					break
				}
			}
			return nil
		},
	})
}

func logStats(ctx context.Context, metrics *obs.Metrics, eventBus *bus.Bus, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetBusDrops(eventBus.Dropped())
			snapshot := metrics.Snapshot()
			logs.Infof("stats: ticks=%d fills=%d transactions=%d rejected=%d busDrops=%d tickMax=%s",
				snapshot.EventCounts[schema.EventTick],
				snapshot.EventCounts[schema.EventOrderFill],
				snapshot.EventCounts[schema.EventTransaction],
				snapshot.RejectedTicks,
				snapshot.BusDrops,
				snapshot.TickLatency.Max)
		}
	}
}
