package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"CampusNotify/internal/bootstrap"
	pkg "CampusNotify/pkg/routes"
)

func main() {
	bootstrap.Loadenv()

	app := fx.New(
		pkg.ConfigModules,
		pkg.NotificationModules,
		pkg.EchoModules,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	app.Run()
}
