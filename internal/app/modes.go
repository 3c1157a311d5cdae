package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tokenscout/tokenscout/internal/anomaly"
	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/pipeline"
	"github.com/tokenscout/tokenscout/internal/platform/auditreg"
	"github.com/tokenscout/tokenscout/internal/platform/dexscreener"
	"github.com/tokenscout/tokenscout/internal/platform/explorer"
	"github.com/tokenscout/tokenscout/internal/platform/honeypot"
	"github.com/tokenscout/tokenscout/internal/platform/marketdata"
	"github.com/tokenscout/tokenscout/internal/platform/social"
	"github.com/tokenscout/tokenscout/internal/scoring"
	"github.com/tokenscout/tokenscout/internal/security"
	"github.com/tokenscout/tokenscout/internal/server"
	"github.com/tokenscout/tokenscout/internal/server/handler"
	"github.com/tokenscout/tokenscout/internal/server/ws"
	"github.com/tokenscout/tokenscout/internal/service"
)

// services bundles the wired service layer shared by the modes.
type services struct {
	listings  *service.ListingService
	analyzer  *service.AnalyzerService
	positions *service.PositionService
	trading   *service.TradingService
}

// buildServices assembles the service layer on top of the wired
// dependencies. The same construction is shared by every mode; modes
// differ only in which loops and surfaces they start.
func (a *App) buildServices(deps *Dependencies) (*services, error) {
	gw := gateway.New(gateway.Config{
		MaxTokens:    a.cfg.RateLimit.MaxTokens,
		RefillPerSec: a.cfg.RateLimit.RefillPerSec,
	}, a.logger)

	// Listings providers.
	providers := make(map[string]service.ListingsProvider)
	if a.cfg.Providers.CoinCap.Enabled {
		providers["coincap"] = marketdata.NewCoinCapClient(
			a.cfg.Providers.CoinCap.BaseURL,
			a.cfg.Providers.CoinCap.ApiKey,
			gw,
		)
	}
	if a.cfg.Providers.CoinMarketCap.Enabled {
		providers["coinmarketcap"] = marketdata.NewCoinMarketCapClient(
			a.cfg.Providers.CoinMarketCap.BaseURL,
			a.cfg.Providers.CoinMarketCap.ApiKey,
			gw,
		)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("app: no listings providers enabled")
	}
	listings := service.NewListingService(providers, deps.MarketCache, a.logger)

	// Security fetchers.
	explorerEndpoints := make(map[domain.Chain]explorer.Endpoint, len(a.cfg.Providers.Explorers))
	for _, ep := range a.cfg.Providers.Explorers {
		explorerEndpoints[domain.Chain(ep.Chain)] = explorer.Endpoint{
			BaseURL: ep.BaseURL,
			APIKey:  ep.ApiKey,
		}
	}
	explorerClient := explorer.NewClient(explorer.Config{
		Endpoints:           explorerEndpoints,
		MinHolders:          a.cfg.Analysis.MinHolders,
		MaxOwnershipPercent: a.cfg.Analysis.MaxOwnershipPercent,
	}, gw)

	fetchers := service.AnalyzerFetchers{
		Honeypot: honeypot.NewClient(a.cfg.Providers.Honeypot.BaseURL, gw),
		Liquidity: dexscreener.NewClient(
			a.cfg.Providers.Dexscreener.BaseURL,
			a.cfg.Analysis.MinLiquidityUSD,
			gw,
		),
		Distribution: explorerClient,
		Transactions: explorerClient,
		Social: social.NewClient(social.Config{
			TwitterBaseURL:   a.cfg.Providers.Social.TwitterBaseURL,
			TwitterBearer:    a.cfg.Providers.Social.TwitterBearer,
			TelegramBaseURL:  a.cfg.Providers.Social.TelegramBaseURL,
			TelegramBotToken: a.cfg.Providers.Social.TelegramBotToken,
			DiscordBaseURL:   a.cfg.Providers.Social.DiscordBaseURL,
		}, gw),
	}
	if len(a.cfg.Providers.AuditRegs) > 0 {
		registries := make([]auditreg.Registry, 0, len(a.cfg.Providers.AuditRegs))
		for _, r := range a.cfg.Providers.AuditRegs {
			registries = append(registries, auditreg.Registry{Name: r.Name, BaseURL: r.BaseURL})
		}
		fetchers.Audit = auditreg.NewClient(registries, gw)
	}

	analyzer := service.NewAnalyzerService(
		service.AnalyzerConfig{BatchConcurrency: a.cfg.Analysis.BatchConcurrency},
		fetchers,
		security.NewAggregator(security.Config{
			MinLiquidityUSD:     a.cfg.Analysis.MinLiquidityUSD,
			MinHolders:          a.cfg.Analysis.MinHolders,
			MaxOwnershipPercent: a.cfg.Analysis.MaxOwnershipPercent,
		}),
		anomaly.NewDetector(),
		scoring.NewScorer(),
		deps.OpportunityStore,
		deps.SignalBus,
		a.logger,
	)

	positions := service.NewPositionService(
		service.PositionConfig{
			InitialInvestmentUSD: a.cfg.Trading.InitialInvestmentUSD,
			ProfitTargetPct:      a.cfg.Trading.ProfitTargetPct,
			StopLossPct:          a.cfg.Trading.StopLossPct,
		},
		deps.PositionStore,
		deps.PerformanceStore,
		deps.AuditStore,
		deps.SignalBus,
		a.logger,
	)

	var wallet service.Wallet
	if deps.Wallet != nil {
		wallet = deps.Wallet
	}
	trading := service.NewTradingService(
		service.TradingConfig{
			Enabled:           a.cfg.Trading.Enabled,
			SecurityThreshold: a.cfg.Trading.SecurityThreshold,
			MaxAnomalyRisk:    a.cfg.Trading.MaxAnomalyRisk,
			PositionSizeUSD:   a.cfg.Trading.PositionSizeUSD,
		},
		wallet,
		positions,
		deps.AuditStore,
		a.logger,
	).WithBus(deps.SignalBus)

	return &services{
		listings:  listings,
		analyzer:  analyzer,
		positions: positions,
		trading:   trading,
	}, nil
}

// newScanLoop builds the scan loop. executor may be nil for read-only modes.
func (a *App) newScanLoop(deps *Dependencies, svcs *services, executor pipeline.Executor) *pipeline.ScanLoop {
	return pipeline.NewScanLoop(
		svcs.listings,
		svcs.analyzer,
		executor,
		deps.LockManager,
		deps.Notifier,
		a.cfg.Trading.MaxEntriesPerScan,
		a.cfg.Pipeline.AlertScore,
		a.logger,
	)
}

// ScanMode runs discovery and scoring on an interval without opening any
// positions. Useful for paper evaluation of the scoring thresholds.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	scan := a.newScanLoop(deps, svcs, nil)
	a.logger.InfoContext(ctx, "scan mode started",
		slog.Duration("interval", a.cfg.Pipeline.ScanInterval.Duration),
	)

	err = scan.RunLoop(ctx, a.cfg.Pipeline.ScanInterval.Duration)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// MonitorMode restores persisted positions and re-prices them on an
// interval, applying the exit rules. No new positions are opened.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	if err := svcs.positions.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore positions: %w", err)
	}

	monitor := pipeline.NewMonitorLoop(svcs.positions, svcs.listings, deps.Notifier, a.logger)
	a.logger.InfoContext(ctx, "monitor mode started",
		slog.Duration("interval", a.cfg.Pipeline.MonitorInterval.Duration),
		slog.Int("restored_positions", len(svcs.positions.Active())),
	)

	err = monitor.RunLoop(ctx, a.cfg.Pipeline.MonitorInterval.Duration)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ServerMode serves the HTTP and WebSocket API over the persisted state
// without running any pipeline loops.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	if err := svcs.positions.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore positions: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, svcs, nil)
	return g.Wait()
}

// FullMode runs everything: scan, monitor, and archive loops plus the
// HTTP and WebSocket API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	if err := svcs.positions.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore positions: %w", err)
	}

	scanTriggerCh := make(chan struct{}, 1)
	scan := a.newScanLoop(deps, svcs, svcs.trading).WithTrigger(scanTriggerCh)
	monitor := pipeline.NewMonitorLoop(svcs.positions, svcs.listings, deps.Notifier, a.logger)
	archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)

	orch := pipeline.NewOrchestrator(
		scan,
		monitor,
		archiver,
		a.cfg.Pipeline.ScanInterval.Duration,
		a.cfg.Pipeline.MonitorInterval.Duration,
		a.cfg.Pipeline.ArchiveCron,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, svcs, scanTriggerCh)
	}

	return g.Wait()
}

// startServer registers the HTTP surface and WebSocket hub on the errgroup.
// scanTriggerCh is optional; when non-nil, POST /api/scan/trigger requests
// one scan pass.
func (a *App) startServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	svcs *services,
	scanTriggerCh chan<- struct{},
) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:           a.cfg.Mode,
		TradingEnabled: svcs.trading.Enabled,
		StartedAt:      time.Now().UTC(),
	})

	scanHandler := handler.NewScanHandler(a.logger)
	if scanTriggerCh != nil {
		scanHandler = scanHandler.WithTriggerChannel(scanTriggerCh)
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.ApiKey,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(a.logger),
			Opportunities: handler.NewOpportunityHandler(deps.OpportunityStore, a.logger),
			Positions:     handler.NewPositionHandler(svcs.positions, a.logger),
			Performance:   handler.NewPerformanceHandler(svcs.positions, a.logger),
			Trading:       handler.NewTradingHandler(svcs.trading, a.logger),
			Scan:          scanHandler,
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
