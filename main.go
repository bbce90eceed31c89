package main

import (
	"github.com/greenify/greenify/config"
	"github.com/greenify/greenify/models"
	"github.com/greenify/greenify/routes"
	"github.com/greenify/greenify/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.AllModels()...)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (driver=%s, graceful)", cfg.AppPort, cfg.DBDriver)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
