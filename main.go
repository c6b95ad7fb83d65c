package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"alphapilot/internal/ai"
	"alphapilot/internal/api"
	"alphapilot/internal/engine"
	"alphapilot/internal/events"
	"alphapilot/internal/fusion"
	"alphapilot/internal/market"
	"alphapilot/internal/monitor"
	"alphapilot/internal/order"
	"alphapilot/internal/risk"
	"alphapilot/internal/state"
	"alphapilot/pkg/config"
	"alphapilot/pkg/db"
	"alphapilot/pkg/exchanges/common"
	"alphapilot/pkg/exchanges/okx"
	"alphapilot/pkg/exchanges/paper"
	"alphapilot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.LogPath)
	log := logger.WithModule("main")
	log.WithField("port", cfg.Port).Info("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("database init failed")
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.WithError(err).Fatal("database migrations failed")
	}

	bus := events.NewBus()

	// AI signal acquisition
	providers, err := config.LoadProviders(cfg.ProvidersPath)
	if err != nil {
		log.WithError(err).Fatal("provider roster load failed")
	}
	ledger := ai.NewCostLedger(cfg.MaxDailyCost)
	client := ai.NewClient(providers, ledger, bus)
	log.WithField("providers", client.ProviderCount()).Info("provider roster loaded")

	// Fusion
	voteWeights := make(map[string]float64, len(providers))
	for _, p := range providers {
		voteWeights[p.Name] = p.VoteWeight
	}
	policy := fusion.Policy{
		StrongConsensus:     cfg.StrongConsensus,
		WeakConsensus:       cfg.WeakConsensus,
		MinDiversity:        cfg.MinDiversity,
		ConfiguredProviders: client.ProviderCount(),
	}
	fuser := fusion.NewEngine(policy, voteWeights)
	fallback := fusion.NewFallback()

	// Venue gateway. Live execution stays refused until a real market
	// data feed replaces the simulated source below.
	if cfg.ExecutionEnabled && !cfg.DryRun {
		log.Fatal("live execution is not supported with the simulated market source; set DRY_RUN=true or disable execution")
	}
	var gateway common.Gateway
	var marker engine.PriceMarker
	if cfg.DryRun {
		paperVenue := paper.New(10000)
		gateway = paperVenue
		marker = paperVenue
		log.Info("dry-run mode, paper venue engaged")
	} else {
		gateway = okx.NewClient(okx.Config{
			BaseURL:    cfg.OKXBaseURL,
			APIKey:     cfg.OKXAPIKey,
			APISecret:  cfg.OKXAPISecret,
			Passphrase: cfg.OKXPassphrase,
			Simulated:  cfg.OKXSimulated,
		})
	}

	// Risk and execution
	assessor := risk.NewAssessor()
	sizer := risk.NewSizer(risk.SizerConfig{
		BaseSize:        cfg.BaseOrderSize,
		MinOrderSize:    cfg.MinOrderSize,
		MaxPositionSize: cfg.MaxPositionSize,
		AccountRiskPct:  cfg.AccountRiskPct,
		StopDistancePct: cfg.StopDistancePct,
	})
	executor := order.NewExecutor(gateway, bus)
	states := state.NewManager(gateway)

	// Observability
	metrics := monitor.NewSystemMetrics()
	monitor.NewWatcher(bus, metrics, nil).Start(ctx)

	// Market data
	source := market.NewMockSource(startingPrices(cfg.Symbols))

	eng := engine.New(engine.Deps{
		Config:   cfg,
		Source:   source,
		Client:   client,
		Fuser:    fuser,
		Fallback: fallback,
		Assessor: assessor,
		Sizer:    sizer,
		Executor: executor,
		States:   states,
		Store:    database,
		Bus:      bus,
		Metrics:  metrics,
		Marker:   marker,
	})
	go eng.Run(ctx)

	server := api.NewServer(eng, bus, cfg)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("api server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")
	cancel()
}

func startingPrices(symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		prices[s] = 100
	}
	return prices
}
