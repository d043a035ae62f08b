// Package router assembles the tier-routing engine into a runnable HTTP
// server: engine wiring, middleware, routes, and graceful shutdown.
package router

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/helix-ml/tier-router/internal/api"
	"github.com/helix-ml/tier-router/internal/config"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Router is one tier-router server instance.
type Router struct {
	config      *config.Config
	app         *fiber.App
	engine      *engine
	middlewares []fiber.Handler
}

// New creates a Router with the given configuration. The cfg parameter is
// required and must not be nil.
func New(cfg *config.Config) *Router {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() or the builder to create config")
	}
	return &Router{config: cfg}
}

// Run starts the server and blocks until shutdown.
func (r *Router) Run() error {
	if err := r.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(r.config)

	port := r.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	r.app = createFiberApp(r.config)

	eng, err := buildEngine(r.config)
	if err != nil {
		return err
	}
	r.engine = eng
	defer eng.close()

	r.setupMiddleware()
	r.setupRoutes()

	fmt.Printf("tier-router starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", r.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := r.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- r.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

// Use registers additional middleware applied before the routes.
func (r *Router) Use(handler fiber.Handler) {
	r.middlewares = append(r.middlewares, handler)
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "tier-router v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		ReadBufferSize:    8192,
		WriteBufferSize:   8192,
		Prefork:           false,
		CaseSensitive:     true,
		StrictRouting:     false,
		Network:           "tcp",
		ServerHeader:      "tier-router",
	})
}

func (r *Router) setupMiddleware() {
	isProd := r.config.IsProduction()

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	r.app.Use(limiter.New(limiter.Config{
		Max:               1000,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fmt.Errorf("1000 requests per minute")
		},
	}))

	// Per-request deadline, overridable via header up to a hard cap.
	r.app.Use(func(c *fiber.Ctx) error {
		const (
			defaultTimeout = 2 * time.Minute
			maxTimeout     = 5 * time.Minute
		)

		timeout := defaultTimeout
		if customTimeout := c.Get("X-Request-Timeout"); customTimeout != "" {
			if d, err := time.ParseDuration(customTimeout); err == nil && d > 0 {
				timeout = min(d, maxTimeout)
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	})

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if isProd {
		r.app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	allowedOrigins := r.config.Server.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, User-Agent, X-Request-ID, X-Request-Timeout",
		AllowMethods:  "GET, POST, OPTIONS",
		MaxAge:        86400,
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
	}))

	for _, middleware := range r.middlewares {
		r.app.Use(middleware)
	}

	if !isProd {
		r.app.Use(pprof.New())
	}
}

func (r *Router) setupRoutes() {
	routeHandler := api.NewRouteHandler(r.config, r.engine.executor)
	metricsHandler := api.NewMetricsHandler(r.engine.executor, r.engine.roleClient)

	healthHandler := api.NewHealthHandler(r.engine.probe, r.engine.redisClient())

	r.app.Get("/", welcomeHandler())
	r.app.Get("/health", healthHandler.HealthCheck)

	v1Group := r.app.Group("/v1")
	v1Group.Post("/route", routeHandler.Route)
	v1Group.Post("/route/decide", routeHandler.Decide)
	v1Group.Get("/metrics", metricsHandler.Metrics)

	if r.engine.roleClient != nil {
		rolesHandler := api.NewRolesHandler(r.engine.roleClient)
		v1Group.Post("/roles/:role/generate", rolesHandler.Generate)
	}
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to tier-router!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"route":   "/v1/route",
				"decide":  "/v1/route/decide",
				"metrics": "/v1/metrics",
				"roles":   "/v1/roles/:role/generate",
				"health":  "/health",
			},
		})
	}
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}
