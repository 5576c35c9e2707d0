// ABOUTME: Entry point for the idgate Telegram bot
// ABOUTME: Subcommands: serve (run the bot), seed (whitelist IDs), users (print whitelist)

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arbatlabs/idgate/internal/access"
	"github.com/arbatlabs/idgate/internal/bot"
	"github.com/arbatlabs/idgate/internal/config"
	"github.com/arbatlabs/idgate/internal/metrics"
	"github.com/arbatlabs/idgate/internal/store"
)

// version is overridden at build time via -ldflags.
var version = "dev"

const banner = `
  _     _            _
 (_) __| | __ _  __ _| |_ ___
 | |/ _' |/ _' |/ _' | __/ _ \
 | | (_| | (_| | (_| | ||  __/
 |_|\__,_|\__, |\__,_|\__\___|
          |___/
`

// getConfigPath returns the path to the idgate config file.
// Priority: IDGATE_CONFIG env var > XDG_CONFIG_HOME/idgate/idgate.yaml > ~/.config/idgate/idgate.yaml
func getConfigPath() string {
	if envPath := os.Getenv("IDGATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "idgate.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "idgate", "idgate.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: idgate <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve             Start the bot")
		fmt.Println("  seed <id>...      Add user IDs to the whitelist")
		fmt.Println("  users             Print the whitelist")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "seed":
		err = runSeed(ctx, os.Args[2:])
	case "users":
		err = runUsers(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:      %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Super admin: %d\n", cfg.Telegram.SuperAdminID)
	green.Print("    ▶ ")
	fmt.Printf("Whitelist:   %s\n", cfg.Database.WhitelistPath)
	green.Print("    ▶ ")
	fmt.Printf("Directory:   %s\n", cfg.Database.DirectoryPath)
	fmt.Println()

	whitelist, err := store.NewSQLiteWhitelist(cfg.Database.WhitelistPath)
	if err != nil {
		return fmt.Errorf("opening whitelist store: %w", err)
	}
	defer whitelist.Close()

	directory, err := store.NewSQLiteDirectory(cfg.Database.DirectoryPath)
	if err != nil {
		return fmt.Errorf("opening directory store: %w", err)
	}
	defer directory.Close()

	var recorder metrics.Recorder
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewCollector(reg)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(reg)}
		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// Startup summary, like the whitelist state at a glance
	users, err := whitelist.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("reading whitelist: %w", err)
	}
	logger.Info("whitelist loaded", "users", len(users))

	gate := access.New(cfg.Telegram.SuperAdminID, whitelist, recorder)
	handlers := bot.NewHandlers(gate, whitelist, directory, recorder)

	b, err := bot.New(cfg.Telegram.Token, gate, handlers, recorder)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	return b.Start(ctx)
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: idgate seed <user_id>...")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(config.LoggingConfig{Level: "warn"}))

	whitelist, err := store.NewSQLiteWhitelist(cfg.Database.WhitelistPath)
	if err != nil {
		return fmt.Errorf("opening whitelist store: %w", err)
	}
	defer whitelist.Close()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	for _, arg := range args {
		userID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user ID %q", arg)
		}

		switch err := whitelist.AddUser(ctx, userID, "", "", ""); {
		case err == nil:
			green.Print("  ✓ ")
			fmt.Printf("added %d\n", userID)
		case errors.Is(err, store.ErrDuplicateUser):
			yellow.Print("  ⚠ ")
			fmt.Printf("already whitelisted: %d\n", userID)
		default:
			return fmt.Errorf("adding %d: %w", userID, err)
		}
	}

	return nil
}

func runUsers(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(config.LoggingConfig{Level: "warn"}))

	whitelist, err := store.NewSQLiteWhitelist(cfg.Database.WhitelistPath)
	if err != nil {
		return fmt.Errorf("opening whitelist store: %w", err)
	}
	defer whitelist.Close()

	users, err := whitelist.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("reading whitelist: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("whitelist is empty")
		return nil
	}

	for _, u := range users {
		fmt.Printf("%d", u.UserID)
		if u.Username != "" {
			fmt.Printf("\t@%s", u.Username)
		}
		fmt.Println()
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level: h.level,
		attrs: newAttrs,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return h
}
