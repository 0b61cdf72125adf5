package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mkessler/sitepulse/internal/config"
	"github.com/mkessler/sitepulse/internal/dashboard"
	"github.com/mkessler/sitepulse/internal/engine"
	"github.com/mkessler/sitepulse/internal/history"
	"github.com/mkessler/sitepulse/internal/ui"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			initCmd()
			return
		case "check":
			checkCmd()
			return
		case "dashboard":
			dashboardCmd()
			return
		}
	}

	daemonCmd(os.Args[1:])
}

// daemonCmd runs the monitor until SIGINT/SIGTERM. SIGUSR1 triggers an
// immediate sweep of all resources; editing the config file tears the engine
// down and rebuilds it with the new resource set.
func daemonCmd(args []string) {
	cfgPath := resolveConfigPath(args)
	logger := ui.New()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)

	watcher := config.NewWatcher(cfgPath, 2*time.Second)
	if err := watcher.Start(); err != nil {
		logger.Warn("Config watcher unavailable, edits need a restart", "err", err)
	} else {
		defer watcher.Stop()
	}

	first := true
	for {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			if first {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				os.Exit(1)
			}
			// The previous generation is already stopped; hold here until
			// the operator fixes the file.
			logger.Error("Config reload failed", err)
			select {
			case <-watcher.Reloads():
				continue
			case <-quit:
				return
			}
		}
		first = false

		logger.Info("sitepulse starting", "config", cfgPath, "resources", len(cfg.EnabledResources()))

		eng, err := engine.New(cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize engine", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		runDone := make(chan error, 1)
		go func() { runDone <- eng.Run(ctx) }()

		var dash *http.Server
		if cfg.Dashboard.Enabled {
			dash = startDashboard(cfg.Dashboard.Port, eng.History(), logger)
		}

		reload := false
		for !reload {
			select {
			case err := <-runDone:
				runDone = nil
				if errors.Is(err, engine.ErrNothingToWatch) {
					logger.Warn("Nothing to watch — enable scanning and add resources, then save the config")
				} else if err != nil {
					logger.Error("Engine stopped", err)
				}
			case <-usr1:
				logger.Info("Sweep requested")
				go eng.CheckAll(ctx)
			case <-watcher.Reloads():
				logger.Info("Config changed, reloading")
				reload = true
			case <-quit:
				logger.Info("Shutting down sitepulse...")
				cancel()
				if runDone != nil {
					<-runDone
				}
				stopDashboard(dash)
				return
			}
		}

		cancel()
		if runDone != nil {
			<-runDone
		}
		stopDashboard(dash)
	}
}

// checkCmd runs one detection cycle for every enabled resource and exits.
func checkCmd() {
	cfgPath := resolveConfigPath(os.Args[2:])
	logger := ui.New()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Scanning.Enabled || len(cfg.EnabledResources()) == 0 {
		logger.Warn("Nothing to check — enable scanning and add resources")
		return
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize engine", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng.CheckAll(ctx)
}

// dashboardCmd serves the status dashboard without running the monitor.
func dashboardCmd() {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	port := fs.Int("port", 8080, "HTTP server port")
	_ = fs.Parse(os.Args[2:])

	hist, err := history.New("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open history: %v\n", err)
		os.Exit(1)
	}

	svr := dashboard.NewServer(hist)
	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("sitepulse dashboard at http://localhost%s\n", addr)
	if err := http.ListenAndServe(addr, svr.Handler()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	_ = fs.Parse(os.Args[2:])

	dir := "."
	if len(fs.Args()) > 0 {
		dir = fs.Arg(0)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid path: %v\n", err)
		os.Exit(1)
	}

	created, err := config.WriteDefault(abs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("sitepulse initialized in %s\n", abs)
	fmt.Printf("  Config: %s\n", created)
	fmt.Printf("  Edit it, then run: sitepulse -config %s\n", created)
}

func startDashboard(port int, hist *history.Store, logger *ui.Logger) *http.Server {
	svr := dashboard.NewServer(hist)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: svr.Handler(),
	}
	go func() {
		logger.Info("Dashboard listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dashboard server stopped", err)
		}
	}()
	return httpSrv
}

func stopDashboard(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// resolveConfigPath returns the config path from -config, or sitepulse.yaml
// in the current directory.
func resolveConfigPath(args []string) string {
	fs := flag.NewFlagSet("sitepulse", flag.ContinueOnError)
	path := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	if *path != "" {
		abs, _ := filepath.Abs(*path)
		return abs
	}
	abs, _ := filepath.Abs(config.DefaultFileName)
	return abs
}
