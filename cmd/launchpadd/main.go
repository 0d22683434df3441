// ====================================
// File: cmd/launchpadd/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jugheadddd/launchpad-contracts/internal/amm"
	"github.com/jugheadddd/launchpad-contracts/internal/bonding"
	"github.com/jugheadddd/launchpad-contracts/internal/config"
	"github.com/jugheadddd/launchpad-contracts/internal/events"
	"github.com/jugheadddd/launchpad-contracts/internal/export"
	"github.com/jugheadddd/launchpad-contracts/internal/factory"
	"github.com/jugheadddd/launchpad-contracts/internal/feed"
	"github.com/jugheadddd/launchpad-contracts/internal/logger"
	"github.com/jugheadddd/launchpad-contracts/internal/router"
	"github.com/jugheadddd/launchpad-contracts/internal/storage"
	"github.com/jugheadddd/launchpad-contracts/internal/storage/models"
	"github.com/jugheadddd/launchpad-contracts/internal/storage/sqlite"
	"github.com/jugheadddd/launchpad-contracts/internal/token"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	logFile := flag.String("log-file", "", "path to JSON log file (optional)")
	exportDir := flag.String("export-trades", "", "export the trade journal as CSV to this directory and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closeLogger, err := logger.New(cfg.DebugLogging, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLogger()

	if *exportDir != "" {
		if err := exportTrades(log, cfg, *exportDir); err != nil {
			log.Fatal("Export failed", zap.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting launchpad daemon",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("database", cfg.DatabasePath))

	if err := run(ctx, log, cfg); err != nil {
		log.Fatal("Daemon exited with error", zap.Error(err))
	}
	log.Info("Shutdown complete")
}

func run(ctx context.Context, log *zap.Logger, cfg *config.Config) error {
	params, err := launchParams(cfg)
	if err != nil {
		return fmt.Errorf("invalid launch parameters: %w", err)
	}

	admin := types.NewAddress("admin")
	vault := types.NewAddress("vault")

	bank := token.NewBank(log)
	native := token.NewNativeBank()
	wrapper, err := token.NewWrapper(bank, native, "Wrapped SEI", "WSEI")
	if err != nil {
		return fmt.Errorf("deploy wrapped native: %w", err)
	}

	fct, err := factory.New(log, admin, factory.TaxConfig{
		BuyTaxBps:  cfg.Curve.BuyTaxBps,
		SellTaxBps: cfg.Curve.SellTaxBps,
		Vault:      vault,
	}, cfg.Curve.Multiplier)
	if err != nil {
		return fmt.Errorf("create factory: %w", err)
	}

	rtr, err := router.New(log, fct, bank, admin)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}
	if err := fct.SetRouter(admin, rtr.Address()); err != nil {
		return fmt.Errorf("register router: %w", err)
	}

	bus := events.NewBus(log, cfg.EventBuffer)
	dex := amm.NewDragonswap(log, bank)

	bnd, err := bonding.New(log, fct, rtr, bank, wrapper, dex, bus, params)
	if err != nil {
		return fmt.Errorf("create bonding orchestrator: %w", err)
	}
	if err := fct.GrantRole(admin, factory.RoleCreator, bnd.Address()); err != nil {
		return fmt.Errorf("grant creator role: %w", err)
	}
	if err := fct.GrantRole(admin, factory.RoleExecutor, bnd.Address()); err != nil {
		return fmt.Errorf("grant executor role: %w", err)
	}

	store, err := sqlite.NewStorage(cfg.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	recorder := storage.NewRecorder(log, store)
	recorder.Attach(bus)
	defer recorder.Detach()

	feedSrv := feed.NewServer(log, bus, cfg.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feedSrv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return bus.Shutdown(context.Background())
	})
	return g.Wait()
}

func exportTrades(log *zap.Logger, cfg *config.Config, outputDir string) error {
	store, err := sqlite.NewStorage(cfg.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	var trades []models.TradeRecord
	const pageSize = 1000
	for offset := 0; ; offset += pageSize {
		page, err := store.ListTrades(ctx, "", pageSize, offset)
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		for _, tr := range page {
			trades = append(trades, *tr)
		}
		if len(page) < pageSize {
			break
		}
	}

	path, err := export.NewTradeExporter(log).ExportTrades(trades, export.Options{
		Format:    export.FormatCSV,
		OutputDir: outputDir,
	})
	if err != nil {
		return err
	}
	log.Info("Trade journal exported", zap.String("file", path))
	return nil
}

func launchParams(cfg *config.Config) (bonding.Params, error) {
	var (
		p   bonding.Params
		err error
	)
	if p.InitialSupply, err = config.Amount(cfg.Launch.InitialSupply); err != nil {
		return p, err
	}
	if p.AssetLaunchFee, err = config.Amount(cfg.Launch.AssetLaunchFee); err != nil {
		return p, err
	}
	if p.NativeLaunchFee, err = config.Amount(cfg.Launch.NativeLaunchFee); err != nil {
		return p, err
	}
	if p.NativeGradThreshold, err = config.Amount(cfg.Launch.NativeGradThreshold); err != nil {
		return p, err
	}
	if p.AssetGradThreshold, err = config.Amount(cfg.Launch.AssetGradThreshold); err != nil {
		return p, err
	}
	p.MaxTxPercent = cfg.Launch.MaxTxPercent
	p.DragonswapTaxBps = cfg.Launch.DragonswapTaxBps
	return p, nil
}
