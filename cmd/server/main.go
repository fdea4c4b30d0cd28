package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"voxelquarry.ai/internal/persistence/indexdb"
	persistlog "voxelquarry.ai/internal/persistence/log"
	"voxelquarry.ai/internal/persistence/sessionstore"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world"
	"voxelquarry.ai/internal/sim/world/feature/quarry/metrics"
	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
	"voxelquarry.ai/internal/transport/ws"
)

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	var (
		addr       = fs.String("addr", ":8080", "http listen address")
		worldIDs   = fs.StringSlice("world", []string{"OVERWORLD"}, "world ids to host (repeatable)")
		seed       = fs.Int64("seed", 1337, "world seed; the i-th world uses seed+i (fresh worlds only)")
		configDir  = fs.String("configs", "./configs", "config directory")
		dataDir    = fs.String("data", "./data", "runtime data directory")
		tuningPath = fs.String("tuning", "", "path to quarry.yaml (default: <configs>/quarry.yaml)")
		disableDB  = fs.Bool("disable_db", false, "disable the sqlite read model")
		loadLatest = fs.Bool("load_latest_snapshot", true, "resume each world from its latest snapshot if present")
		snapKeep   = fs.Int("snapshot_keep", 24, "snapshots kept per world before older ones move to archives (0 keeps all)")
		adminHTTP  = fs.Bool("admin_http", defaultEnableAdminHTTP(), "serve /admin/v1 to loopback clients")
	)
	_ = fs.Parse(os.Args[1:])

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "quarry.yaml")
	}
	resuming := *loadLatest && anySnapshot(*dataDir, *worldIDs)
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if !resuming || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	loop := world.NewLoop(world.LoopConfig{TickRateHz: tune.TickRateHz})
	var startTick uint64
	for i, id := range *worldIDs {
		w, tick, err := openWorld(worldOptions{
			ID:         id,
			Seed:       *seed + int64(i),
			Dir:        worldDir(*dataDir, id),
			LoadLatest: *loadLatest,
		}, tune, cats, logger)
		if err != nil {
			logger.Fatalf("world %s: %v", id, err)
		}
		loop.Add(w)
		if tick > startTick {
			startTick = tick
		}
	}
	loop.StartAt(startTick)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "quarry.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	events := persistlog.NewRecorder(filepath.Join(*dataDir, "events"), logger)
	recorders := persistlog.Fanout{events}
	if idx != nil {
		recorders = append(recorders, idx)
	}

	store, err := sessionstore.Open(filepath.Join(*dataDir, sessionstore.FileName), sessionstore.Options{
		Log:      log.New(os.Stdout, "[sessions] ", log.LstdFlags|log.Lmicroseconds),
		Defaults: sessionstore.Defaults{Pattern: tune.Quarry.DefaultPattern, Speed: tune.Quarry.DefaultSpeed},
	})
	if err != nil {
		logger.Fatalf("open session store: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	quarryMetrics := metrics.New(reg)

	opts := orchestrator.Options{
		Config:    orchestrator.ConfigFromTuning(tune),
		Log:       log.New(os.Stdout, "[quarry] ", log.LstdFlags|log.Lmicroseconds),
		Scheduler: loop.Scheduler(),
		Worlds:    loopResolver(loop),
		Store:     store,
		Recorder:  recorders,
		Metrics:   quarryMetrics,
		Clock:     loop.Scheduler().Now,
	}
	var snapIndex snapshotRecorder
	if idx != nil {
		opts.Index = idx
		snapIndex = idx
	}
	orch, err := orchestrator.New(opts)
	if err != nil {
		logger.Fatalf("orchestrator: %v", err)
	}
	hub := ws.NewServer(statusFunc(loop, orch), log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))
	orch.SetNotifier(hub)

	states, stats, err := store.Load(func(id string) bool {
		_, ok := loop.Resolve(id)
		return ok
	})
	if err != nil {
		logger.Fatalf("load sessions: %v", err)
	}
	restored := orch.Restore(states)
	logger.Printf("sessions: records=%d migrated=%d invalid=%d unknown_world=%d restored=%d",
		stats.Records, stats.Migrated, stats.Invalid, stats.UnknownWorld, restored)
	orch.StartAutosave()

	snaps := newSnapshotter(loop, *dataDir, *snapKeep, snapIndex, logger)
	snaps.Start()
	cancelSnapshots := func() {}
	if tune.SnapshotEveryTicks > 0 {
		cancelSnapshots = loop.Scheduler().Every(tune.SnapshotEveryTicks, snaps.Capture)
	}

	ctx, cancel := signalContext()
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/ws", hub.Handler())
	if *adminHTTP {
		newAdminAPI(loop, orch, logger).Register(mux)
	} else {
		logger.Printf("admin http disabled")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s worlds=%v tick=%d", *addr, loop.WorldIDs(), startTick)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	cancel()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("loop: %v", err)
	}

	// The loop goroutine has exited; the world and orchestrator are ours now.
	cancelSnapshots()
	if err := orch.Shutdown(); err != nil {
		logger.Printf("save sessions on shutdown: %v", err)
	}
	snaps.Close()
	snaps.Final(loop.CurrentTick())
	if err := store.Close(); err != nil {
		logger.Printf("close session store: %v", err)
	}
	if err := events.Close(); err != nil {
		logger.Printf("close event log: %v", err)
	}
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
	logger.Printf("stopped at tick=%d", loop.CurrentTick())
}

func loopResolver(loop *world.Loop) orchestrator.WorldResolver {
	return orchestrator.ResolverFunc(func(id string) (orchestrator.Env, bool) {
		w, ok := loop.Resolve(id)
		if !ok {
			return nil, false
		}
		return w, true
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
