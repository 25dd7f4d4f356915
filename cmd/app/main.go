package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/auth"
	"github.com/bagger-dev/bagger-back/internal/config"
	"github.com/bagger-dev/bagger-back/internal/db"
	"github.com/bagger-dev/bagger-back/internal/seed"
	"github.com/bagger-dev/bagger-back/internal/service"
	"github.com/bagger-dev/bagger-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			NewLogger,
			config.NewConfig,
			db.NewGormClient,
			auth.NewPassword,
			auth.NewToken,
			service.NewCredential,
			service.NewTaxonomy,
			service.NewCheats,
			service.NewOverlays,
			service.NewBootstrap,
			transport.NewHTTPServer,
		),
		fx.Invoke(SeedIfEnabled),
		fx.Invoke(func(server *transport.HTTPServer) {}),
	)

	app.Run()
}

func NewLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func SeedIfEnabled(cfg *config.Config, gdb *gorm.DB, logger *zap.SugaredLogger) error {
	if !cfg.SeedOnStart {
		return nil
	}
	return seed.IfEmpty(gdb, logger)
}
