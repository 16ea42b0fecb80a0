package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"

	"github.com/l1jgo/segments/internal/config"
	"github.com/l1jgo/segments/internal/core/ecs"
	"github.com/l1jgo/segments/internal/core/system"
	"github.com/l1jgo/segments/internal/persist"
	"github.com/l1jgo/segments/internal/scenario"
	"github.com/l1jgo/segments/internal/scripting"
	"github.com/l1jgo/segments/internal/sim"
)

const defaultConfig = "config/segments.toml"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Display helpers ────────────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner(name, scenarioName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             segments  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       archetype ECS · parallel runner     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mrun:\033[0m %s \033[90m(scenario: %s)\033[0m\n\n", name, scenarioName)
}

// displayWidth counts wide runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main run ───────────────────────────────────────────────────────

type options struct {
	config   string
	scenario string
	frames   int
	workers  int
	validate bool
	profile  string
	journal  bool
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{config: defaultConfig}
	if p := os.Getenv("SEGMENTS_CONFIG"); p != "" {
		opts.config = p
	}
	flags := pflag.NewFlagSet("segments", pflag.ContinueOnError)
	flags.StringVarP(&opts.config, "config", "c", opts.config, "config file (env SEGMENTS_CONFIG)")
	flags.StringVarP(&opts.scenario, "scenario", "s", "", "scenario file, overrides runtime.scenario")
	flags.IntVarP(&opts.frames, "frames", "n", 0, "frames to run, 0 runs until interrupted")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "systems run at once per block")
	flags.BoolVar(&opts.validate, "validate", false, "check storage coherence after every frame")
	flags.StringVar(&opts.profile, "profile", "", "write a cpu or mem profile to the working directory")
	flags.BoolVar(&opts.journal, "journal", false, "record frames to PostgreSQL")
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, flags, nil
}

// loadConfig reads the config file. A missing default file falls back to
// built-in defaults.
func loadConfig(opts *options, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.config)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !flags.Changed("config"):
		cfg = config.Default()
	case err != nil:
		return nil, err
	default:
		cfg.Runtime.StartTime = time.Now().Unix()
	}

	if opts.scenario != "" {
		cfg.Runtime.Scenario = opts.scenario
	}
	if flags.Changed("frames") {
		cfg.Runtime.Frames = opts.frames
	}
	if flags.Changed("workers") {
		cfg.Runtime.Workers = opts.workers
	}
	if opts.validate {
		cfg.Runtime.Validate = true
	}
	if opts.journal {
		cfg.Database.Enabled = true
	}
	return cfg, nil
}

func run(args []string) error {
	// 1. Flags and config
	opts, flags, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", opts.profile)
	}

	// 3. Scenario and scripts
	sc, err := scenario.Load(cfg.Runtime.Scenario)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	printBanner(cfg.Runtime.Name, sc.Name)

	printSection("setup")
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		printOK(fmt.Sprintf("Lua scripts loaded from %s", cfg.Scripting.Dir))
	}

	// 4. World and runner
	w := ecs.NewWorld(
		ecs.WithLogger(log),
		ecs.WithSegmentCapacity(cfg.Runtime.SegmentCapacity),
		ecs.WithEntityCapacity(cfg.Runtime.EntityCapacity),
	)
	defer w.Close()

	printStat("entities spawned", sim.Populate(w, sc))
	runner := system.NewRunner(w, system.WithWorkers(cfg.Runtime.Workers), system.WithLogger(log))
	if err := sim.Register(runner, w, sc, engine); err != nil {
		return fmt.Errorf("register systems: %w", err)
	}
	printStat("segments", len(w.Segments()))
	printOK(fmt.Sprintf("scenario %s (%s)", sc.Name, sc.Digest[:12]))
	fmt.Println()

	// 5. Journal
	var recorder *persist.Recorder
	if cfg.Database.Enabled {
		printSection("journal")
		rec, finish, err := openJournal(cfg, sc, log)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer finish()
		recorder = rec
		fmt.Println()
	}

	// 6. Frame loop
	total := cfg.Runtime.Frames
	if total == 0 {
		total = sc.Frames
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	var tick <-chan time.Time
	if cfg.Runtime.FrameRate > 0 {
		ticker := time.NewTicker(cfg.Runtime.FrameRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	printSection("run")
	if total > 0 {
		printReady(printer.Sprintf("running %d frames", total))
	} else {
		printReady("running until interrupted")
	}

	frame := 0
	started := time.Now()
	var slowest time.Duration
loop:
	for total == 0 || frame < total {
		if tick != nil {
			select {
			case <-tick:
			case sig := <-shutdownCh:
				log.Info("received shutdown signal", zap.String("signal", sig.String()))
				break loop
			}
		} else {
			select {
			case sig := <-shutdownCh:
				log.Info("received shutdown signal", zap.String("signal", sig.String()))
				break loop
			default:
			}
		}

		start := time.Now()
		if err := runner.Run(); err != nil {
			return fmt.Errorf("frame %d: %w", frame+1, err)
		}
		elapsed := time.Since(start)
		slowest = max(slowest, elapsed)
		frame++

		if cfg.Runtime.Validate {
			if err := w.Validate(); err != nil {
				return fmt.Errorf("frame %d: %w", frame, err)
			}
		}
		if recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := recorder.Record(ctx, persist.Snapshot(w, frame, len(runner.Blocks()), elapsed)); err != nil {
				log.Warn("journal record failed", zap.Int("frame", frame), zap.Error(err))
			}
			cancel()
		}
	}
	fmt.Println()

	printSummary(w, runner, frame, time.Since(started), slowest)
	return nil
}

// openJournal connects, migrates and starts a run. The returned func flushes
// outstanding frames and closes the run.
func openJournal(cfg *config.Config, sc *scenario.Scenario, log *zap.Logger) (*persist.Recorder, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(ctx, db.Pool, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("migrations applied (version %d)", version))

	repo := persist.NewJournalRepo(db)
	id, err := repo.StartRun(ctx, cfg.Runtime.Name, sc.Sum[:])
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	printOK(fmt.Sprintf("run %s", id))

	recorder := persist.NewRecorder(repo, id, cfg.Database.FlushEvery, log)
	finish := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := recorder.Flush(ctx); err != nil {
			log.Error("journal flush failed", zap.Int("pending", recorder.Pending()), zap.Error(err))
		}
		if err := repo.FinishRun(ctx, id); err != nil {
			log.Error("journal finish failed", zap.Error(err))
		}
		db.Close()
	}
	return recorder, finish, nil
}

func printSummary(w *ecs.World, runner *system.Runner, frames int, elapsed, slowest time.Duration) {
	printSection("summary")
	printStat("frames", frames)
	printStat("entities", w.Entities().Len())
	if stats, ok := ecs.Resource[sim.Stats](w); ok {
		printStat("spawned", stats.Spawned)
		printStat("replicated", stats.Replicated)
		printStat("expired", stats.Expired)
		printStat("children", stats.Children)
	}
	if frames > 0 {
		printOK(fmt.Sprintf("%s total, %s per frame, slowest %s",
			elapsed.Round(time.Millisecond),
			(elapsed / time.Duration(frames)).Round(time.Microsecond),
			slowest.Round(time.Microsecond),
		))
	}
	fmt.Println()

	printSection("segments")
	for _, s := range w.Segments() {
		names := make([]string, 0, len(s.Metas()))
		for _, m := range s.Metas() {
			names = append(names, strings.TrimPrefix(m.Name, "sim."))
		}
		printStat(fmt.Sprintf("#%d %s", s.Index(), strings.Join(names, "+")), s.Count())
	}
	fmt.Println()

	printSection("blocks")
	for _, block := range runner.Blocks() {
		printOK(strings.Join(block, " | "))
	}
	fmt.Println()
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
