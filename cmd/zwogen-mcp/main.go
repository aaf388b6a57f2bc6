package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/zwogen/internal/config"
	"github.com/claude/zwogen/internal/library"
	zmcp "github.com/claude/zwogen/internal/mcp"
	"github.com/claude/zwogen/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file (local mode)")
	remote := pflag.String("remote", "", "zwogen server URL; serve its library instead of a local database")
	apiKey := pflag.String("api-key", os.Getenv("ZWOGEN_API_KEY"), "server API key for --remote (default $ZWOGEN_API_KEY)")
	login := pflag.String("user", "local", "login of the library owner (local mode)")
	version := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *version {
		fmt.Println("zwogen-mcp", Version)
		return
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()

	var ds zmcp.DataSource
	userID := 1

	if *remote != "" {
		ds = zmcp.NewHTTPClient(strings.TrimRight(*remote, "/"), *apiKey)
		log.Info("serving remote library", "server", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		userID, err = db.GetOrCreateUser(ctx, *login, *login)
		if err != nil {
			log.Error("failed to resolve user", "login", *login, "error", err)
			os.Exit(1)
		}

		ds = library.NewService(db, log, library.Options{
			DefaultAuthor:  cfg.Library.DefaultAuthor,
			MaxSourceBytes: cfg.Library.MaxSourceBytes,
		})
		log.Info("serving local library", "user", *login)
	}

	m := zmcp.New(ds, Version, log)
	err := mcpserver.ServeStdio(m, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return zmcp.WithUserID(ctx, userID)
	}))
	if err != nil {
		log.Error("stdio server stopped", "error", err)
		os.Exit(1)
	}
}
