package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"CampusNotify/internal/validation"
)

// AppValidator plugs the shared validator into echo's c.Validate.
type AppValidator struct{}

func (AppValidator) Validate(i interface{}) error {
	return validation.Struct(i)
}

// SetupMiddleware installs the process-wide middleware chain on e.
func SetupMiddleware(e *echo.Echo, allowedOrigins []string, logger *zap.Logger) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = AppValidator{}
	e.HTTPErrorHandler = HTTPErrorHandler(logger)

	e.Use(echomw.RequestID())
	e.Use(requestLogger(logger.Named("http")))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("requestId", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
				zap.ByteString("stack", stack),
			)
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("requestId", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remoteIp", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				logger.Warn("request", fields...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
