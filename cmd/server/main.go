package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"foodgram/internal/config"
	"foodgram/internal/db"
	"foodgram/internal/logger"
	"foodgram/internal/router"
	"foodgram/internal/services"
	"foodgram/internal/storage"
	"foodgram/internal/utils"
	"foodgram/internal/validation"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	// Initialize Database
	gdb, err := db.Open(cfg, logg)
	if err != nil {
		logg.Fatal("Database init failed", "error", err)
	}
	if err := db.SeedTags(gdb, logg); err != nil {
		logg.Fatal("Seeding tags failed", "error", err)
	}
	if cfg.IngredientsCSV != "" {
		if err := db.ImportIngredientsFile(gdb, cfg.IngredientsCSV, logg); err != nil {
			logg.Fatal("Importing ingredients failed", "error", err)
		}
	}

	cache, err := utils.NewCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		logg.Fatal("Cache init failed", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	v := validation.New()
	media := storage.NewLocalStore(cfg.MediaRoot, cfg.SiteURL)

	r := router.New(router.Deps{
		Config:        cfg,
		Log:           logg,
		Registry:      registry,
		Media:         media,
		Users:         services.NewUserService(gdb, v, media),
		Subscriptions: services.NewSubscriptionService(gdb),
		Catalog:       services.NewCatalogService(gdb, cache),
		Recipes:       services.NewRecipeService(gdb, v, media, logg),
		Favorites:     services.NewFavoriteService(gdb),
		Cart:          services.NewCartService(gdb),
		Shopping:      services.NewShoppingService(gdb),
		Links:         services.NewShortLinkService(gdb, logg),
	})

	logg.Info("Foodgram server starting", "port", cfg.Port, "site_url", cfg.SiteURL)
	if err := r.Run(":" + cfg.Port); err != nil {
		logg.Fatal("Server stopped", "error", err)
	}
}
