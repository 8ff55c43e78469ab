// Command seed fills the database with a demo social network.
package main

import (
	"flag"
	"log/slog"
	"os"
	"slices"
	"strings"

	"lcnetwork/internal/config"
	"lcnetwork/internal/database"
	"lcnetwork/internal/seed"
)

func main() {
	presetName := flag.String("preset", "default", "preset to apply")
	presetsFile := flag.String("presets", "", "YAML file with extra presets")
	clean := flag.Bool("clean", false, "delete existing rows before seeding")
	dryRun := flag.Bool("dry-run", false, "build entities without writing them")
	randomSeed := flag.Int64("seed", 0, "random seed for reproducible data (0 = time based)")
	maxDays := flag.Int("days", 90, "spread timestamps over this many past days")
	flag.Parse()

	presets, err := seed.LoadPresets(*presetsFile)
	if err != nil {
		fatal("load presets", err)
	}
	preset, ok := presets[*presetName]
	if !ok {
		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		slices.Sort(names)
		slog.Error("unknown preset", slog.String("preset", *presetName), slog.String("available", strings.Join(names, ", ")))
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fatal("load configuration", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		fatal("connect database", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{
		SkipBcrypt: !cfg.IsProduction(),
		DryRun:     *dryRun,
		MaxDays:    *maxDays,
		RandomSeed: *randomSeed,
	})
	if err != nil {
		fatal("create seeder", err)
	}

	if *clean && !*dryRun {
		if err := s.ClearAll(); err != nil {
			fatal("clear database", err)
		}
	}

	sum, err := s.Run(preset)
	if err != nil {
		fatal("seed", err)
	}
	slog.Info("done",
		slog.String("preset", preset.Name),
		slog.Bool("dry_run", *dryRun),
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.String("password", seed.DefaultPassword),
	)
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
