package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gndm/ytGateway/internal/config"
	"github.com/gndm/ytGateway/internal/logger"
	"github.com/gndm/ytGateway/internal/resolver"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

const shutdownTimeout = 10 * time.Second

type (
	// Gateway is a thin wrapper around the Echo router. It owns the routes
	// and middleware; all media work is delegated to the resolver.
	Gateway struct {
		config   config.Config
		ec       *echo.Echo
		resolver resolver.Resolver
	}

	echoValidator struct {
		validate *validator.Validate
	}
)

func (v *echoValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// NewGateway constructs the Echo router and registers every route. ui is
// mounted under /app/ when non-nil.
func NewGateway(cfg config.Config, res resolver.Resolver, ui http.Handler) *Gateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HideBanner = true
	ec.HidePort = true
	ec.Validator = &echoValidator{validate: validator.New()}

	gateway := &Gateway{config: cfg, ec: ec, resolver: res}

	ec.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	ec.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Emit(logger.INFO, "%s %s -> %d (%s) [%s]\n", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	ec.Use(middleware.Recover())
	ec.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))

	probeMethods := []string{http.MethodGet, http.MethodHead}
	ec.Match(probeMethods, "/", gateway.root)
	ec.Match(probeMethods, "/health", gateway.health)
	ec.GET("/info", gateway.info)
	ec.GET("/mp3", gateway.mp3)
	ec.GET("/mp4", gateway.mp4)

	if ui != nil {
		ec.GET("/app", func(c echo.Context) error {
			return c.Redirect(http.StatusMovedPermanently, "/app/")
		})
		ec.GET("/app/*", echo.WrapHandler(http.StripPrefix("/app", ui)))
	}

	return gateway
}

// Handler exposes the router for embedding in other servers.
func (gateway *Gateway) Handler() http.Handler {
	return gateway.ec
}

// Run serves HTTP on the configured address until ctx is cancelled or the
// listener fails. In-flight downloads get shutdownTimeout to finish.
func (gateway *Gateway) Run(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		log.Emit(logger.NEW, "Listening on %s\n", gateway.config.Addr())
		errs <- gateway.ec.Start(gateway.config.Addr())
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Emit(logger.STOP, "Shutting down HTTP server...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gateway.ec.Shutdown(shutdownCtx); err != nil {
		log.Emit(logger.WARNING, "Graceful shutdown incomplete, closing connections: %v\n", err)
		return gateway.ec.Close()
	}
	return nil
}
