package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/a3tai/mcp-biodata/internal/biodata"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/storage"
	"github.com/a3tai/mcp-biodata/internal/config"
	"github.com/a3tai/mcp-biodata/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const closeTimeout = 5 * time.Second

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		// Silence logging in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		// In server mode, use normal logging with more detail
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// hasVersionFlag reports whether args ask for version information
func hasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// serviceOptions maps configuration onto session options
func serviceOptions(cfg *config.Config, backend storage.Backend) biodata.Options {
	defaults := model.DefaultOptions()
	defaults.Scale = cfg.DefaultScale
	defaults.Format = cfg.DefaultFormat
	defaults.Orientation = cfg.DefaultOrientation
	defaults.ImageTimeout = cfg.CaptureTimeout

	return biodata.Options{
		Backend:       backend,
		Fs:            afero.NewOsFs(),
		OutputDir:     cfg.OutputDirectory,
		MaxImageSize:  cfg.MaxImageSize,
		AutosaveDelay: cfg.AutosaveDelay,
		Defaults:      defaults,
		Logger:        log.New(log.Writer(), "[Biodata] ", log.Flags()),
		ServerName:    cfg.ServerName,
		Version:       cfg.Version,
	}
}

// newService opens the draft backend and creates the session
func newService(ctx context.Context, cfg *config.Config) (*biodata.Service, error) {
	backend, err := storage.OpenBackend(ctx, storage.BackendConfig{
		Kind:      cfg.StoreBackend,
		DataDir:   cfg.DataDirectory,
		RedisAddr: cfg.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s draft store: %w", cfg.StoreBackend, err)
	}

	svc, err := biodata.NewService(ctx, serviceOptions(cfg, backend))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return svc, nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) error {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			return fmt.Errorf("server shutdown with error: %w", err)
		}

	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Println("Server stopped successfully")
	return nil
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) error {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	if hasVersionFlag(os.Args[1:]) {
		printVersion()
		return
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create biodata service
	svc, err := newService(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create biodata service: %v", err)
	}

	// Create MCP server
	server, err := mcp.NewServer(cfg, svc)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Handle different modes
	if cfg.IsServerMode() {
		err = runServerMode(ctx, cancel, server)
	} else {
		err = runStdioMode(ctx, cancel, server)
	}

	// Flush the draft before exiting
	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	if cerr := svc.Close(closeCtx); cerr != nil {
		log.Printf("Failed to close draft store: %v", cerr)
	}

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP Biodata Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
