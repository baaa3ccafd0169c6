package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aakash-taneja/miles/internal/adapter/repo"
	"github.com/aakash-taneja/miles/internal/http/handlers"
	"github.com/aakash-taneja/miles/internal/http/httpapi"
	"github.com/aakash-taneja/miles/internal/infra"
	"github.com/aakash-taneja/miles/internal/infra/geoip"
	"github.com/aakash-taneja/miles/internal/orchestrator"
	"github.com/aakash-taneja/miles/internal/providers/augment"
	"github.com/aakash-taneja/miles/internal/providers/chain"
	"github.com/aakash-taneja/miles/internal/providers/lighthouse"
	"github.com/aakash-taneja/miles/internal/publish"
	"github.com/aakash-taneja/miles/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	// Content-addressed store: the hosted service when a key is configured,
	// a local content-addressed directory otherwise.
	var store handlers.ArtifactStore
	if cfg.LighthouseAPIKey != "" {
		store = lighthouse.NewClient(lighthouse.Options{
			APIKey:  cfg.LighthouseAPIKey,
			NodeURL: cfg.LighthouseNodeURL,
			Gateway: cfg.LighthouseGateway,
			Timeout: cfg.UploadTimeout,
		})
	} else {
		fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure local storage")
		}
		logger.Warn().Str("path", cfg.StoragePath).Msg("lighthouse key missing, using local content-addressed storage")
		store = fileStore
	}

	augmentor := augment.NewClient(augment.Options{
		BaseURL: cfg.AugmentorURL,
		Timeout: cfg.AugmentTimeout,
	})

	var minter orchestrator.Minter
	if cfg.PrivateKey != "" {
		m, err := chain.NewMinter(chain.Options{
			RPCURL:          cfg.ChainRPCURL,
			PrivateKey:      cfg.PrivateKey,
			ContractAddress: cfg.ContractAddress,
			ChainID:         cfg.ChainID,
			Timeout:         cfg.ChainTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure minter")
		}
		defer m.Close()
		minter = m
	} else {
		logger.Warn().Msg("PRIVATE_KEY missing, reward minting disabled")
	}

	region, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	core := orchestrator.New(orchestrator.Deps{
		Users:        repo.NewUserRepository(dbpool),
		Datasets:     repo.NewDatasetRepository(dbpool),
		Images:       repo.NewImageRepository(dbpool),
		Jobs:         repo.NewJobRepository(dbpool),
		Transactions: repo.NewTransactionRepository(dbpool),
		Augmentor:    augmentor,
		Publisher:    publish.NewPublisher(store),
		Minter:       minter,
		RewardAmount: cfg.RewardAmount,
		Logger:       logger,
	})

	app := handlers.NewApp(cfg, logger, core, store, region)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
