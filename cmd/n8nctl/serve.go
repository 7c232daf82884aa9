package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"n8n-workflows/internal/api"
	"n8n-workflows/internal/auth"
	"n8n-workflows/internal/mcp"
	"n8n-workflows/internal/repository"
	"n8n-workflows/internal/services"
	"n8n-workflows/internal/tls"
)

func newServeCmd(a *app) *cobra.Command {
	var stdio bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP tools over HTTP, or MCP over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := a.client()
			if err != nil {
				return err
			}
			store, closeStore, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				a.logger.Info("No database configured; keeping deployment history in memory")
				store = repository.NewMemoryDeploymentStore()
			} else {
				a.logger.Info("Database connected", "host", a.cfg.DB.Host)
			}

			deployService := services.NewDeployService(client, store, a.logger)
			mcpServer := mcp.NewServer(deployService)

			if stdio {
				a.logger.Info("Serving MCP over stdio", "n8n", client.BaseURL())
				return mcpServer.ServeStdio()
			}
			return a.serveHTTP(ctx, deployService, store, mcpServer)
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	return cmd
}

func (a *app) newEcho(deployService *services.DeployService, store repository.DeploymentStore, mcpServer *mcp.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("n8n-workflows"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			a.logger.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	authz := auth.New(a.cfg, a.logger)
	handler := api.NewHandler(deployService, store, version)

	e.GET("/health", echo.WrapHandler(http.HandlerFunc(handler.HandleHealth)))

	// Mount REST API handlers
	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, handler)

	// Mount MCP protocol handlers
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	mcpGroup := e.Group("/mcp")
	mcpGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	mcpGroup.Any("/*", echo.WrapHandler(mcpHandlers))

	return e
}

func (a *app) serveHTTP(ctx context.Context, deployService *services.DeployService, store repository.DeploymentStore, mcpServer *mcp.Server) error {
	tlsCfg := a.cfg.Server.TLS
	if tlsCfg.Enable {
		generated, err := tls.EnsureCertificate(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.Hostnames)
		if err != nil {
			return err
		}
		if generated {
			a.logger.Warn("Generated self-signed certificate", "cert_file", tlsCfg.CertFile, "hostnames", tlsCfg.Hostnames)
		}
	}

	// Deploy-and-run waits on several n8n round trips.
	server := &http.Server{
		Addr:         a.cfg.Server.Address,
		Handler:      a.newEcho(deployService, store, mcpServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * a.cfg.N8N.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", "address", server.Addr, "tls", tlsCfg.Enable)
		if tlsCfg.Enable {
			serverErrors <- server.ListenAndServeTLS(tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-shutdown:
		a.logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error", "error", err)
		return server.Close()
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
