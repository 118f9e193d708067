package migrate

import (
	"context"
	"fmt"

	"github.com/divvyup/divvyup-backend/pkg/config"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/logger"
)

// MaybeRunDev applies schema automatically when running in dev mode with the
// feature flag enabled. Goose handles Postgres; the sqlite dev flag gets
// GORM auto-migration since the goose files carry Postgres DDL.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite || cfg.DB.Driver == "sqlite" {
		logg.Info(ctx, "running GORM auto-migration (sqlite dev)")
		return AutoMigrate(client)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}

// AutoMigrate creates the schema from the GORM models. Tests and the sqlite
// dev path use this; Postgres deployments use the goose files.
func AutoMigrate(client *db.Client) error {
	return client.DB().AutoMigrate(
		&models.Receipt{},
		&models.ReceiptItem{},
		&models.Room{},
		&models.RoomMember{},
		&models.Claim{},
	)
}
