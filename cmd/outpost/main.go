package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/config"
	"github.com/ironforge/outpost/internal/core/event"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/engine"
	"github.com/ironforge/outpost/internal/observer"
	"github.com/ironforge/outpost/internal/persist"
	"github.com/ironforge/outpost/internal/scripting"
	"github.com/ironforge/outpost/internal/snapshot"
	"github.com/ironforge/outpost/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              outpost  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     deterministic factory defense sim     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := max(3, 46-len(title)-1)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(3, 42-len(label)-len(numStr))
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ──────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("OUTPOST_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Catalog and tuning scripts
	printSection("data")
	cat, err := loadCatalog(cfg.Simulation.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	printStat("catalog entries", cat.Count())

	tuning, err := scripting.NewEngine(cfg.Simulation.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer tuning.Close()
	printOK("tuning scripts loaded")
	fmt.Println()

	// 4. World: resume or bootstrap
	printSection("world")
	eng, err := openEngine(cfg.Simulation, cat, tuning, log)
	if err != nil {
		return err
	}
	eng.SetTickDuration(cfg.Simulation.TickRate)
	w := eng.World()
	printOK(fmt.Sprintf("%s run, seed %d, tick %d", w.Run.Difficulty, w.Run.Seed, w.Tick))
	printStat("entities", w.Entities.Count())
	fmt.Println()

	// 5. Optional PostgreSQL archive
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var arc *archive
	if cfg.Database.Enabled {
		printSection("database")
		arc, err = openArchive(ctx, cfg.Database, w, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer arc.close()
		printOK(fmt.Sprintf("run %s registered", arc.runID))
		fmt.Println()
	}

	// 6. Command log
	if cfg.Simulation.CommandLog != "" {
		logged, err := readCommandLog(cfg.Simulation.CommandLog)
		if err != nil {
			return fmt.Errorf("command log: %w", err)
		}
		// A resumed run already applied or queued part of the log.
		cmds := eng.FreshCommands(logged)
		if arc != nil {
			if err := arc.wal.Append(ctx, arc.runID, cmds); err != nil {
				return fmt.Errorf("command wal: %w", err)
			}
		}
		eng.Enqueue(cmds...)
		log.Info("command log queued",
			zap.String("path", cfg.Simulation.CommandLog),
			zap.Int("count", len(cmds)),
			zap.Int("skipped", len(logged)-len(cmds)),
		)
	}

	stats := &runStats{}
	stats.attach(eng.Bus(), log)

	// 7. Observer endpoint
	var obsServer *http.Server
	var hub *observer.Hub
	if cfg.Observer.Enabled {
		hub = observer.NewHub(cfg.Observer, log)
		hub.Attach(eng.Bus())
		mux := http.NewServeMux()
		mux.Handle(cfg.Observer.Path, hub.Handler())
		obsServer = &http.Server{Addr: cfg.Observer.BindAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := obsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("observer server", zap.Error(err))
			}
		}()
	}

	// 8. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("ready")
	if obsServer != nil {
		printReady(fmt.Sprintf("observers on ws://%s%s", cfg.Observer.BindAddress, cfg.Observer.Path))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	saveCounter := 0
	stopReason := ""
loop:
	for {
		select {
		case <-ticker.C:
			eng.Step()
			saveCounter++
			if cfg.Simulation.SnapshotDir != "" && saveCounter >= cfg.Simulation.SnapshotEvery {
				saveCounter = 0
				saveSnapshot(ctx, eng, cfg.Simulation.SnapshotDir, arc, log)
			}
			switch {
			case eng.World().Frozen():
				stopReason = string(eng.World().Run.Phase)
				if eng.World().Run.Extracted {
					stopReason = "extracted"
				}
				break loop
			case cfg.Simulation.MaxTicks > 0 && eng.Tick() >= cfg.Simulation.MaxTicks:
				stopReason = "max ticks"
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			stopReason = "signal " + sig.String()
			break loop
		}
	}

	// 9. Shutdown
	if hub != nil {
		hub.Close()
		sent, dropped := hub.Stats()
		log.Info("observers closed", zap.Uint64("sent", sent), zap.Uint64("dropped", dropped))
	}
	if obsServer != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = obsServer.Shutdown(sctx)
		scancel()
	}
	if cfg.Simulation.SnapshotDir != "" {
		saveSnapshot(ctx, eng, cfg.Simulation.SnapshotDir, arc, log)
	}
	digest, err := snapshot.Digest(eng.World())
	if err != nil {
		return err
	}
	if arc != nil {
		fctx, fcancel := context.WithTimeout(ctx, 10*time.Second)
		err := arc.runs.Finish(fctx, arc.runID, eng.Tick(), string(eng.World().Run.Phase), digest)
		fcancel()
		if err != nil {
			log.Error("finish run record", zap.Error(err))
		}
	}
	printReport(cfg.Server.Language, eng.World(), stats, digest, stopReason)
	log.Info("outpost stopped", zap.String("reason", stopReason), zap.Uint64("tick", eng.Tick()))
	return nil
}

func loadCatalog(path string) (*data.Catalog, error) {
	if path == "" {
		return data.DefaultCatalog()
	}
	return data.LoadCatalog(path)
}

// openEngine resumes from the configured snapshot file, or bootstraps a
// fresh run from difficulty and seed.
func openEngine(cfg config.SimulationConfig, cat *data.Catalog, tuning *scripting.Engine, log *zap.Logger) (*engine.Engine, error) {
	if cfg.ResumeFrom != "" {
		h, snap, err := snapshot.ReadFile(cfg.ResumeFrom)
		if err != nil {
			return nil, fmt.Errorf("resume %s: %w", cfg.ResumeFrom, err)
		}
		eng, err := engine.New(cat, tuning, snap.World, log)
		if err != nil {
			return nil, err
		}
		if err := eng.Load(snap); err != nil {
			return nil, err
		}
		printOK(fmt.Sprintf("resumed from %s (digest %s)", filepath.Base(cfg.ResumeFrom), h.Digest[:12]))
		return eng, nil
	}
	w, err := world.Bootstrap(cat, world.Options{Difficulty: cfg.Difficulty, Seed: cfg.Seed})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return engine.New(cat, tuning, w, log)
}

func readCommandLog(path string) ([]command.Command, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return command.ParseLog(f)
}

// archive is the database side of a run: its record, snapshots and the
// command write-ahead log.
type archive struct {
	db    *persist.DB
	runs  *persist.RunRepo
	snaps *persist.SnapshotRepo
	wal   *persist.CommandWAL
	runID uuid.UUID
}

const keepDBSnapshots = 5

func openArchive(ctx context.Context, cfg config.DatabaseConfig, w *world.State, log *zap.Logger) (*archive, error) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(cctx, cfg, log)
	if err != nil {
		return nil, err
	}
	printOK("PostgreSQL connected")
	version, err := persist.RunMigrations(cctx, db.Pool)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("archive schema at version %d", version))

	a := &archive{
		db:    db,
		runs:  persist.NewRunRepo(db),
		snaps: persist.NewSnapshotRepo(db),
		wal:   persist.NewCommandWAL(db),
	}
	a.runID, err = a.runs.Create(cctx, w.Run.Difficulty, w.Run.Seed)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *archive) close() { a.db.Close() }

// saveSnapshot writes the engine state to dir and, with an archive, to the
// database. Failures are logged; the run keeps going.
func saveSnapshot(ctx context.Context, eng *engine.Engine, dir string, arc *archive, log *zap.Logger) {
	snap := eng.MakeSnapshot()
	tick := snap.World.Tick
	h, body, err := snapshot.Marshal(snap)
	if err != nil {
		log.Error("encode snapshot", zap.Uint64("tick", tick), zap.Error(err))
		return
	}
	path := filepath.Join(dir, snapshot.FileName(tick))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("snapshot dir", zap.String("dir", dir), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		log.Error("write snapshot", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("snapshot saved", zap.Uint64("tick", tick), zap.String("digest", h.Digest), zap.Int("bytes", len(body)))

	if arc == nil {
		return
	}
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	row := persist.SnapshotRow{RunID: arc.runID, Tick: tick, Phase: h.Phase, Digest: h.Digest, Body: body}
	if err := arc.snaps.Save(dctx, row); err != nil {
		log.Error("archive snapshot", zap.Uint64("tick", tick), zap.Error(err))
		return
	}
	if err := arc.wal.MarkProcessed(dctx, arc.runID, tick); err != nil {
		log.Error("mark wal processed", zap.Error(err))
	}
	if n, err := arc.snaps.Prune(dctx, arc.runID, keepDBSnapshots); err != nil {
		log.Error("prune snapshots", zap.Error(err))
	} else if n > 0 {
		log.Debug("pruned snapshots", zap.Int64("count", n))
	}
}

// runStats counts notable events for the final report and logs them.
type runStats struct {
	kills       int
	rejected    int
	raids       int
	bottlenecks int
}

func (s *runStats) attach(bus *event.Bus, log *zap.Logger) {
	bus.Subscribe(event.EnemyDestroyed, func(event.Event) { s.kills++ })
	bus.Subscribe(event.PlacementRejected, func(ev event.Event) {
		s.rejected++
		log.Debug("placement rejected", zap.Uint64("tick", ev.Tick), zap.String("structure", ev.ItemID), zap.String("reason", ev.Detail))
	})
	bus.Subscribe(event.RaidTriggered, func(ev event.Event) {
		s.raids++
		log.Info("raid", zap.Uint64("tick", ev.Tick), zap.Int("size", ev.Value))
	})
	bus.Subscribe(event.WaveStarted, func(ev event.Event) {
		log.Info("wave started", zap.Uint64("tick", ev.Tick), zap.Int("wave", ev.Value))
	})
	bus.Subscribe(event.BottleneckActivated, func(ev event.Event) {
		s.bottlenecks++
		log.Warn("bottleneck", zap.Uint64("tick", ev.Tick), zap.String("signal", ev.Detail))
	})
	bus.Subscribe(event.GameOver, func(ev event.Event) {
		log.Warn("base destroyed", zap.Uint64("tick", ev.Tick))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
