// Command seed creates the default admin, the initial categories and staff
// role assignments, then exits.
package main

import (
	"context"
	"flag"
	"log"

	"designpro/internal/accounts"
	"designpro/internal/catalog"
	"designpro/internal/config"
	"designpro/internal/database"
	"designpro/internal/logging"
	"designpro/internal/seed"

	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "YAML seed file (categories and roles); built-in categories if empty")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "designpro-seed")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	path := *file
	if path == "" {
		path = cfg.SeedFile
	}
	data := seed.Default
	if path != "" {
		if data, err = seed.Load(path); err != nil {
			logger.Fatal("load seed file", zap.Error(err))
		}
	}

	db, err := database.Open(cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if err := database.EnsureAdmin(db, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
		logger.Fatal("ensure admin", zap.Error(err))
	}

	report, err := seed.Apply(context.Background(), data, catalog.NewService(db, logger, nil), accounts.NewService(db, logger), logger)
	if err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	logger.Info("seed finished",
		zap.Int("categories_created", report.CategoriesCreated),
		zap.Int("categories_existed", report.CategoriesExisted),
		zap.Int("roles_assigned", report.RolesAssigned),
		zap.Int("skipped", report.Skipped),
	)
}
