package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"invosheet/internal/acquire"
	"invosheet/internal/config"
	"invosheet/internal/listener"
	"invosheet/internal/llm"
	"invosheet/internal/pipeline"
	"invosheet/internal/profile"
	"invosheet/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	profiles, err := profile.Load(cfg.ProfilesPath)
	must(err)

	var delegate pipeline.DelegatedExtractor
	var vision acquire.VisionClient
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.New(cfg)
		must(err)
		delegate = client
		vision = client
	}

	runner := pipeline.NewRunner(
		profiles,
		acquire.NewService(vision),
		pipeline.NewExtractor(profiles, delegate),
		pipeline.NewNormalizer(cfg.DateOrder, cfg.DefaultCurrency),
		db,
	)

	svc := listener.NewService(db, cfg, runner)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
