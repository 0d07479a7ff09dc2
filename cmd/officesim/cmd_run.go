package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-office/internal/agents"
	"github.com/talgya/mini-office/internal/api"
	"github.com/talgya/mini-office/internal/config"
	"github.com/talgya/mini-office/internal/engine"
	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/persistence"
	"github.com/talgya/mini-office/internal/work"
	"github.com/talgya/mini-office/internal/world"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and serve the HTTP API",
		RunE:  runSim,
	}
	cmd.Flags().Bool("fresh", false, "Ignore saved state and staff a new office")
	cmd.Flags().Uint64("ticks", 0, "Stop after N ticks (0 = run until interrupted)")
	return cmd
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fresh, _ := cmd.Flags().GetBool("fresh")
	maxTicks, _ := cmd.Flags().GetUint64("ticks")

	slog.Info("Mini Office: autonomous office simulation", "version", version, "seed", cfg.Seed)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Floor and Work Board ──────────────────────────────────────────
	floor := world.NewFloor(cfg.Office.Width, cfg.Office.Depth)
	nav := world.NewNavigator(cfg.Office.WalkSpeed, floor)
	board := work.NewBoard(cfg.BoardConfig())

	// ── Interaction Catalog ───────────────────────────────────────────
	catalog, err := buildCatalog(cfg, board)
	if err != nil {
		return err
	}

	// ── Load or Staff Office ──────────────────────────────────────────
	needCfg, err := cfg.NeedsStateConfig()
	if err != nil {
		return err
	}
	spawner, err := agents.NewSpawner(agents.SpawnConfig{
		Seed:           cfg.Seed,
		Needs:          needCfg,
		DriftAmplitude: cfg.Needs.DriftAmplitude,
		Floor:          floor,
	})
	if err != nil {
		return err
	}

	var staff []*agents.Agent
	var startTick, eventSeq uint64
	var clock float64

	if db.HasWorldState() && !fresh {
		slog.Info("found saved office state, loading...")

		if staff, err = db.LoadAgents(spawner); err != nil {
			return fmt.Errorf("load agents: %w", err)
		}
		if _, err := db.LoadBoard(board); err != nil {
			return fmt.Errorf("load board: %w", err)
		}
		if startTick, err = db.LastTick(); err != nil {
			return fmt.Errorf("load tick: %w", err)
		}
		if clock, err = db.Clock(); err != nil {
			return fmt.Errorf("load clock: %w", err)
		}

		slog.Info("office state restored",
			"agents", len(staff),
			"tick", startTick,
			"sim_time", engine.SimTime(clock),
		)
	} else {
		slog.Info("no saved state, staffing a new office...")
		staff = spawner.SpawnPopulation(cfg.Office.Agents, 0)
	}

	// Event numbering continues across runs, fresh or not.
	if eventSeq, err = db.EventSeq(); err != nil {
		return fmt.Errorf("load event seq: %w", err)
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(floor, staff, catalog, board, nav, cfg.SchedulerConfig())
	sim.Spawner = spawner
	sim.LastTick = startTick
	sim.Clock = clock
	sim.EventSeq = eventSeq

	slog.Info("office ready",
		"agents", len(staff),
		"objects", catalog.Len(),
		"floor", floor.String(),
	)

	if startTick == 0 {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	eng := engine.NewEngine(cfg.Clock.TickSeconds, time.Duration(cfg.Clock.IntervalMS)*time.Millisecond)
	eng.Tick = startTick
	eng.SetSpeed(cfg.Clock.Speed)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Wire tick callbacks; auto-save every sim-hour.
	eng.OnTick = func(tick uint64, dt float64) {
		sim.TickSecond(tick, dt)
		if maxTicks > 0 && tick-startTick >= maxTicks {
			cancel()
		}
	}
	eng.OnMinute = sim.TickMinute
	eng.OnHour = func(tick uint64) {
		sim.TickHour(tick)
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("hourly save failed", "error", err)
		}
	}
	eng.OnDay = sim.TickDay

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("OFFICESIM_ADMIN_KEY not set; admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
		RelayKey: cfg.API.RelayKey,
	}
	apiServer.Start(ctx)

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nThe office is open: %d agents, %d objects.\n", len(staff), catalog.Len())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(clock))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Simulation stopped. Office state saved.")
	return nil
}

// buildCatalog registers the configured layout. Broken definitions are
// logged and skipped; an empty catalog is an error.
func buildCatalog(cfg *config.Config, gate work.Gate) (*interaction.Catalog, error) {
	defs, err := loadDefinitions(cfg.Office.CatalogFile)
	if err != nil {
		return nil, err
	}

	catalog := interaction.NewCatalog()
	n, err := catalog.RegisterDefinitions(defs, gate)
	if err != nil {
		slog.Warn("some objects were skipped", "error", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("catalog: no usable objects")
	}
	return catalog, nil
}

func loadDefinitions(path string) ([]interaction.Definition, error) {
	if path == "" {
		return interaction.DefaultDefinitions()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return interaction.LoadDefinitions(f)
}
