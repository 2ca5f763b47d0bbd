package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"taskmaster/internal/config"
	"taskmaster/internal/db"
	"taskmaster/internal/ui"
	"taskmaster/internal/web"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("taskmaster %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	configPathFlag := flag.String("config", "", "config file path")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	webFlag := flag.Bool("web", false, "enable the JSON API server")
	webOnlyFlag := flag.Bool("web-only", false, "run the JSON API server without the TUI")
	portFlag := flag.Int("port", 0, "JSON API server port")
	flag.Parse()

	cfgPath := *configPathFlag
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			fatal(err)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(err)
	}

	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if *webFlag || *webOnlyFlag {
		cfg.WebEnabled = true
	}
	if *portFlag != 0 {
		cfg.WebPort = *portFlag
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = 8080
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		fatal(err)
	}

	database, err := openStore(cfg.DBPath)
	if err != nil {
		fatal(fmt.Errorf("initializing database: %w", err))
	}
	defer database.Close()

	if cfg.WebEnabled {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		addr := fmt.Sprintf(":%d", cfg.WebPort)
		handler := web.NewServer(database, logger).Handler()

		if *webOnlyFlag {
			logger.Info("server_listen", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, handler); err != nil {
				fatal(err)
			}
			return
		}

		go func() {
			if err := http.ListenAndServe(addr, handler); err != nil {
				logger.Error("server_error", slog.String("error", err.Error()))
			}
		}()
	}

	app := ui.NewApp(database)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fatal(fmt.Errorf("running application: %w", err))
	}
}

func openStore(path string) (*db.DB, error) {
	if path == "" {
		return db.New()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return db.Open(path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
