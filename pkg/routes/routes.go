package pkg

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"CampusNotify/internal/audit"
	"CampusNotify/internal/config"
	"CampusNotify/internal/notification"
	"CampusNotify/internal/recipient"
	"CampusNotify/internal/session"
	"CampusNotify/pkg/middleware"
)

var ConfigModules = fx.Module("config",
	fx.Provide(config.NewAppConfig),
	fx.Provide(config.NewMongoDBConfig),
	fx.Provide(config.NewLogConfig),
	fx.Provide(config.NewLogger),
	fx.Provide(config.NewMongoDBClient),
	fx.Invoke(config.RegisterIndexes),
)

var NotificationModules = fx.Module("notification",
	fx.Provide(fx.Annotate(recipient.NewMongoRegistry, fx.As(new(notification.RecipientResolver)))),
	fx.Provide(fx.Annotate(audit.NewRepository, fx.As(new(audit.Store)))),
	fx.Provide(fx.Annotate(audit.NewService, fx.As(fx.Self()), fx.As(new(notification.AuditRecorder)))),
	fx.Provide(audit.NewHandler),
	fx.Provide(fx.Annotate(notification.NewRepository, fx.As(new(notification.Store)))),
	fx.Provide(notification.NewDispatcher),
	fx.Provide(notification.NewService),
	fx.Provide(notification.NewHandler),
	fx.Provide(fx.Annotate(session.NewMongoRegistry, fx.As(new(session.Registry)))),
	fx.Provide(session.NewService),
	fx.Provide(session.NewHandler),
)

var EchoModules = fx.Module("echo",
	fx.Provide(middleware.NewEnforcer),
	fx.Provide(NewEchoServer),
	fx.Invoke(RegisterRoutes),
)

// NewEchoServer builds the server and ties its start and graceful stop to the
// application lifecycle.
func NewEchoServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.AppConfig, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	middleware.SetupMiddleware(e, cfg.AllowedOrigins, logger)
	addr := net.JoinHostPort("", cfg.Port)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("server listening", zap.String("addr", addr), zap.String("env", cfg.Env))
			go func() {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped unexpectedly", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down the server")
			ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
			return e.Shutdown(ctx)
		},
	})
	return e
}

// RouteParams gathers everything RegisterRoutes mounts.
type RouteParams struct {
	fx.In

	Echo                *echo.Echo
	Config              *config.AppConfig
	Logger              *zap.Logger
	Enforcer            *casbin.Enforcer
	Mongo               *config.MongoDBClient
	NotificationHandler *notification.Handler
	AuditHandler        *audit.Handler
	SessionHandler      *session.Handler
}

func RegisterRoutes(p RouteParams) {
	p.Echo.GET("/health", healthCheck(p.Mongo.Client))

	api := p.Echo.Group("/api",
		middleware.JWTMiddleware([]byte(p.Config.JWTKey)),
		middleware.CasbinMiddleware(p.Enforcer, p.Logger.Named("rbac")),
	)

	n := api.Group("/notifications")
	n.POST("/send", p.NotificationHandler.Send)
	n.POST("/bulk-send", p.NotificationHandler.BulkSend)
	n.GET("/my", p.NotificationHandler.ListMine)
	n.GET("/user/:userId", p.NotificationHandler.ListForUser)
	n.GET("/all", p.NotificationHandler.ListAll)
	n.GET("/stats", p.NotificationHandler.Stats)
	n.GET("/filters", p.SessionHandler.Filters)
	n.PATCH("/:id/read", p.NotificationHandler.MarkRead)
	n.DELETE("/:id", p.NotificationHandler.Delete)

	api.GET("/audit-logs", p.AuditHandler.ListEntries)
}

// Pinger is the slice of *mongo.Client the health check needs.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

func healthCheck(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), readpref.Primary()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
