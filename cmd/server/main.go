package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/ytfetch-go/api"
	"github.com/yourusername/ytfetch-go/api/handlers"
	"github.com/yourusername/ytfetch-go/internal/app"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/infrastructure"
	"github.com/yourusername/ytfetch-go/internal/platform"
	"github.com/yourusername/ytfetch-go/pkg/logger"
)

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	foreground = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	if !*serverMode && !*foreground {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// startAsDaemon re-executes the binary detached from the terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runServer() error {
	if err := app.LoadDotEnv(); err != nil {
		return err
	}

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	logs := logger.NewLoggerAdapter(log, multiLog)

	profile := platform.Current(config.Binaries.FFmpegVersion)
	log.Info("Starting ytfetch server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("platform", profile.OS+"/"+profile.Arch),
		zap.String("binaries_dir", config.Binaries.Dir))

	fs := afero.NewOsFs()
	if err := createDirectories(fs, config); err != nil {
		return err
	}

	hub := app.NewEventHub(log)
	defer hub.Close()

	resolver := platform.NewResolver(fs, config.Binaries.Dir, profile)
	httpClient := &http.Client{Timeout: config.Binaries.HTTPTimeout}
	fetcher := infrastructure.NewHTTPFetcher(fs, httpClient, config.Binaries.UserAgent, log)
	provisioner := infrastructure.NewBinaryProvisioner(
		fs,
		resolver,
		fetcher,
		infrastructure.NewZipExtractor(fs, log),
		hub.PublishProvisioning,
		log,
	)
	inspector := infrastructure.NewToolInspector(resolver, nil, config.Binaries.UserAgent, config.Binaries.VersionTimeout, log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	repo, err := infrastructure.NewSQLiteJobRepository(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	orchestrator := infrastructure.NewOrchestrator(fs, resolver, infrastructure.NewArgumentBuilder(fs), config.Download.LogsDir, log)

	provisioning := app.NewProvisioningService(provisioner, resolver, inspector, notifier, logs)
	jobs := app.NewJobManager(repo, orchestrator, hub, notifier, logs, config.Download.DefaultDir)
	if err := jobs.RecoverInterrupted(); err != nil {
		log.Warn("Failed to recover interrupted jobs", zap.Error(err))
	}

	router := api.SetupRouter(api.Dependencies{
		Provisioning: provisioning,
		Jobs:         jobs,
		Hub:          hub,
		LogReader:    logger.NewLogReader(fs, config.Download.LogsDir),
		Logs:         logs,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		log.Error("HTTP server failed", zap.Error(err))
		return err
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// running children are killed before the listener goes away so their
	// terminal events still reach connected clients
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		log.Error("Jobs did not stop in time", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(fs afero.Fs, config *domain.Config) error {
	dirs := []string{
		config.Binaries.Dir,
		config.Download.DefaultDir,
		config.Download.LogsDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
