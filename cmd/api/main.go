package main

import (
	"log"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/quillfox/devgate/internal/app"
	"github.com/quillfox/devgate/internal/config"
	"github.com/quillfox/devgate/internal/provider"
	"github.com/quillfox/devgate/internal/provider/dev"
	"github.com/quillfox/devgate/internal/signer"
	"github.com/quillfox/devgate/internal/storage"
	"github.com/quillfox/devgate/internal/tokenizer"
	"github.com/quillfox/devgate/internal/transport/http/handler"
	"github.com/quillfox/devgate/internal/transport/http/middleware/auth"
	"github.com/quillfox/devgate/internal/transport/http/middleware/ratelimit"
)

func main() {
	cfg := config.Load()
	logger := setupLogger()

	// Data directory and config file scaffolding
	if err := config.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if err := config.EnsureConfigFile(); err != nil {
		log.Fatalf("Failed to create config file: %v", err)
	}

	// Storage
	store, err := storage.NewSQLiteStorage(config.DBPath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// First-run admin password prompt
	if err := ensureAdminPassword(store); err != nil {
		log.Fatalf("Failed to set up admin password: %v", err)
	}

	// API key auth cache
	apiKeyCache, err := ristretto.NewCache(&ristretto.Config[string, *auth.CachedAPIKey]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		log.Fatalf("Failed to create API key cache: %v", err)
	}

	// Signing module; load failures surface on the first proxied request
	sig, err := signer.NewFromFile(cfg.Dev.WasmPath, logger)
	if err != nil {
		log.Fatalf("Failed to load signing module from %s: %v", cfg.Dev.WasmPath, err)
	}

	tok := tokenizer.New()

	// Dev backend provider behind the model alias router
	client := dev.NewClient(cfg.Dev, sig, logger)
	devProvider := dev.NewProvider(client, tok, logger)
	router := provider.NewRouter(map[string]provider.Provider{
		devProvider.Name(): devProvider,
	}, cfg)

	repo := handler.NewRepo(router, store, tok, apiKeyCache)

	httpHandler := app.NewRouter(repo, &app.RouterOptions{
		Logger:      logger,
		Storage:     store,
		APIKeyCache: apiKeyCache,
		Limiter:     ratelimit.New(),
	})

	printStartupBanner(cfg)

	srv := app.NewServer(cfg, httpHandler)
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
