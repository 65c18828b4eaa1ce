package main

import (
	"context"
	"fmt"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/database"
	"github.com/easygo/easygo-schools/internal/logger"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/service"
)

// sync-permissions registers every permission code the application knows
// and grants them all to the super admin role. Run it after a release
// that adds permissions.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	roles := service.NewAdminRoleService(repository.NewRoleRepository(pool), repository.NewTxManager(pool))

	added, err := roles.SyncSuperAdmin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sync permissions")
	}

	fmt.Printf("Super admin (role %d) holds all %d permissions, %d newly granted.\n",
		model.SuperAdminRoleID, len(model.AllPermissions), added)
}
