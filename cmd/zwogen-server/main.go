package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/zwogen/internal/config"
	"github.com/claude/zwogen/internal/library"
	zmcp "github.com/claude/zwogen/internal/mcp"
	"github.com/claude/zwogen/internal/server"
	"github.com/claude/zwogen/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// store is what the server needs from its persistence layer.
type store interface {
	library.Store
	server.UserStore
}

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file")
	migrationsPath := pflag.String("migrations", "migrations", "path to the SQL migrations directory")
	migrateOnly := pflag.Bool("migrate-only", false, "run migrations and exit")
	memory := pflag.Bool("memory", false, "keep the library in memory instead of PostgreSQL (development only)")
	pflag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("zwogen server starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var st store
	if *memory {
		st = library.NewMemStore()
		log.Warn("using in-memory library; workouts are lost on exit")
	} else {
		// Run migrations
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, *migrationsPath); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		// Connect database
		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
		st = db
	}

	// Without Tailscale every request runs as the dev user, which must exist
	// for the workouts foreign key.
	if !cfg.Tailscale.Enabled {
		if _, err := st.GetOrCreateUser(ctx, "local", "Local Dev User"); err != nil {
			log.Error("failed to create dev user", "error", err)
			os.Exit(1)
		}
	}

	lib := library.NewService(st, log, library.Options{
		DefaultAuthor:  cfg.Library.DefaultAuthor,
		MaxSourceBytes: cfg.Library.MaxSourceBytes,
	})

	// Create server
	srv := server.New(lib, st, cfg.Auth.APIKey, log)

	if cfg.MCP.Enabled {
		m := zmcp.New(lib, Version, log)
		srv.SetMCP(mcpserver.NewStreamableHTTPServer(m,
			mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
				return zmcp.WithUserID(ctx, server.UserIDFromRequest(r))
			}),
		))
		log.Info("MCP endpoint enabled", "path", "/mcp")
	}

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
