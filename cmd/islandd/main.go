package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/islands/internal/config"
	"github.com/l1jgo/islands/internal/data"
	"github.com/l1jgo/islands/internal/grid"
	"github.com/l1jgo/islands/internal/locator"
	"github.com/l1jgo/islands/internal/persist"
	"github.com/l1jgo/islands/internal/reservation"
	"github.com/l1jgo/islands/internal/scripting"
	"github.com/l1jgo/islands/internal/sched"
	"github.com/l1jgo/islands/internal/world"
)

func printUsage() {
	fmt.Println("Usage: islandd <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  allocate  Allocate the next island plot for an actor")
	fmt.Println("  preview   List the next free spiral plots without reserving them")
	fmt.Println("  frontier  Print the stored spiral frontier")
	fmt.Println()
	fmt.Println("The config path is taken from -config, then ISLANDS_CONFIG, then config/islands.toml.")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file")
	actor := fs.String("actor", "console", "actor name")
	worldName := fs.String("world", "", "world the actor is in")
	x := fs.Float64("x", 0, "actor x")
	y := fs.Float64("y", 0, "actor y")
	z := fs.Float64("z", 0, "actor z")
	yaw := fs.Float64("yaw", 0, "actor yaw in degrees (0 = south)")
	confirm := fs.Bool("confirm", false, "confirm the allocation into the island list")
	n := fs.Int("n", 10, "number of plots to preview")
	_ = fs.Parse(os.Args[2:])

	var err error
	switch cmd {
	case "allocate":
		req := locator.Request{
			Actor:    *actor,
			World:    *worldName,
			Position: grid.Position{X: *x, Y: *y, Z: *z},
			Yaw:      *yaw,
			Notifier: consoleNotifier{},
		}
		err = run(*cfgPath, func(a *app) error { return a.allocate(req, *confirm) })
	case "preview":
		err = run(*cfgPath, func(a *app) error { return a.preview(*n) })
	case "frontier":
		err = run(*cfgPath, func(a *app) error { return a.showFrontier() })
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

type consoleNotifier struct{}

func (consoleNotifier) Notify(msg string) {
	fmt.Printf("  \033[34m»\033[0m %s\n", msg)
}

// ── Wiring ────────────────────────────────────────────────────────

type app struct {
	cfg       *config.Config
	log       *zap.Logger
	islands   *world.State
	orphans   *world.OrphanPool
	table     *reservation.Table
	locator   *locator.Locator
	scheduler *sched.Worker
}

func run(cfgPath string, fn func(*app) error) error {
	// 1. Load config
	if cfgPath == "" {
		cfgPath = "config/islands.toml"
		if p := os.Getenv("ISLANDS_CONFIG"); p != "" {
			cfgPath = p
		}
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Frontier store
	printSection("Storage")
	store, err := persist.OpenFrontierStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("frontier store: %w", err)
	}
	defer store.Close()
	printOK(fmt.Sprintf("frontier backend: %s", cfg.Frontier.Backend))

	// 4. Island list
	entries, err := data.LoadIslandList(cfg.Worlds.IslandList)
	if err != nil {
		return fmt.Errorf("load island list: %w", err)
	}
	orphans := world.NewOrphanPool()
	islands := world.NewState(orphans)
	islandCount, orphanCount, err := data.Populate(entries, cfg.Island.Distance, islands, orphans)
	if err != nil {
		return fmt.Errorf("load island list: %w", err)
	}
	printStat("islands", islandCount)
	printStat("orphans", orphanCount)

	// 5. Placement policy
	var spawn locator.SpawnRegion = world.Spawn{Radius: cfg.Spawn.Radius}
	var worlds locator.WorldPolicy = world.NewWorlds(cfg.Worlds.SkyWorlds)
	if cfg.Scripting.Dir != "" {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, cfg.Island.Distance, spawn, worlds, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		spawn, worlds = engine, engine
		printOK("lua placement policy loaded")
	}
	fmt.Println()

	// 6. Scheduler, reservations, locator
	worker := sched.NewWorker(log.Named("sched"))
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := worker.Close(closeCtx); err != nil {
			log.Warn("scheduler did not drain", zap.Error(err))
		}
	}()
	table := reservation.NewTable(cfg.Island.ReservationTimeout, sched.SystemClock, worker)

	loc := locator.New(ctx, locator.Options{
		Distance:       cfg.Island.Distance,
		MaxSpiralSteps: cfg.Island.MaxSpiralSteps,
	}, locator.Deps{
		Islands:      islands,
		Spawn:        spawn,
		Worlds:       worlds,
		Orphans:      orphans,
		Store:        store,
		Reservations: table,
		Scheduler:    worker,
		Log:          log.Named("locator"),
	})

	return fn(&app{
		cfg:       cfg,
		log:       log,
		islands:   islands,
		orphans:   orphans,
		table:     table,
		locator:   loc,
		scheduler: worker,
	})
}

func (a *app) allocate(req locator.Request, confirm bool) error {
	printSection("Allocate")
	res, err := a.locator.Allocate(req)
	if err != nil {
		if errors.Is(err, locator.ErrSearchExhausted) {
			return fmt.Errorf("raise island.max_spiral_steps or free plots: %w", err)
		}
		return err
	}
	fmt.Printf("  %s %s \033[90m(%s)\033[0m\n", req.Actor, res.Cell, res.Reason)

	if !confirm {
		return nil
	}
	if _, err := a.islands.AddIsland(res.Cell, req.Actor, time.Now()); err != nil {
		return fmt.Errorf("confirm %s: %w", res.Cell, err)
	}
	a.table.Release(res.Cell)
	if err := data.SaveIslandList(a.cfg.Worlds.IslandList, data.Snapshot(a.islands, a.orphans)); err != nil {
		return err
	}
	printOK(fmt.Sprintf("island confirmed at %s", res.Cell))
	return nil
}

func (a *app) preview(n int) error {
	printSection("Preview")
	cells, err := a.locator.Preview(n)
	for i, c := range cells {
		fmt.Printf("  %3d  %-16s ring %d\n", i+1, c, grid.Ring(c, a.cfg.Island.Distance))
	}
	return err
}

func (a *app) showFrontier() error {
	printSection("Frontier")
	fmt.Printf("  %s\n", a.locator.Frontier())
	return nil
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
