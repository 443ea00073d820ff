package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Draft store backends
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultMaxImageSize   = 5 * 1024 * 1024 // 5MB
	DefaultScale          = 2.0
	DefaultFormat         = "a4"
	DefaultOrientation    = "portrait"
	DefaultCaptureTimeout = 20 * time.Second
	DefaultAutosaveDelay  = time.Second
	DefaultRedisAddr      = "localhost:6379"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the biodata server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Storage configuration
	OutputDirectory string // exported PDFs
	DataDirectory   string // draft database
	StoreBackend    string
	RedisAddr       string

	// Export defaults
	DefaultScale       float64
	DefaultFormat      string
	DefaultOrientation string
	CaptureTimeout     time.Duration
	AutosaveDelay      time.Duration

	// Application configuration
	Version      string
	ServerName   string
	LogLevel     string
	MaxImageSize int64 // Maximum photo upload size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:               ModeStdio, // Default to stdio mode for MCP compatibility
		Host:               DefaultHost,
		Port:               DefaultPort,
		OutputDirectory:    currentDir,
		DataDirectory:      filepath.Join(currentDir, ".biodata"),
		StoreBackend:       StoreSQLite,
		RedisAddr:          DefaultRedisAddr,
		DefaultScale:       DefaultScale,
		DefaultFormat:      DefaultFormat,
		DefaultOrientation: DefaultOrientation,
		CaptureTimeout:     DefaultCaptureTimeout,
		AutosaveDelay:      DefaultAutosaveDelay,
		Version:            "1.0.0",
		ServerName:         "mcp-biodata",
		LogLevel:           DefaultLogLevel,
		MaxImageSize:       DefaultMaxImageSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, dir := range []*string{&cfg.OutputDirectory, &cfg.DataDirectory} {
		if *dir != "" {
			if expanded, err := filepath.Abs(*dir); err == nil {
				*dir = expanded
			}
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("BIODATA")
	viper.AutomaticEnv()

	// Defaults mirror DefaultConfig
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.OutputDirectory)
	viper.SetDefault("datadir", cfg.DataDirectory)
	viper.SetDefault("store", cfg.StoreBackend)
	viper.SetDefault("redisaddr", cfg.RedisAddr)
	viper.SetDefault("scale", cfg.DefaultScale)
	viper.SetDefault("format", cfg.DefaultFormat)
	viper.SetDefault("orientation", cfg.DefaultOrientation)
	viper.SetDefault("capturetimeout", cfg.CaptureTimeout)
	viper.SetDefault("autosave", cfg.AutosaveDelay)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maximagesize", cfg.MaxImageSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.OutputDirectory, "Directory exported PDFs are saved to")
	pflag.String("datadir", cfg.DataDirectory, "Directory holding the draft database")
	pflag.String("store", cfg.StoreBackend, "Draft store backend: sqlite, redis or memory")
	pflag.String("redisaddr", cfg.RedisAddr, "Redis address (redis store only)")
	pflag.Float64("scale", cfg.DefaultScale, "Default capture scale (capped at 6)")
	pflag.String("format", cfg.DefaultFormat, "Default page format: a4 or letter")
	pflag.String("orientation", cfg.DefaultOrientation, "Default page orientation: portrait or landscape")
	pflag.Duration("capturetimeout", cfg.CaptureTimeout, "How long a capture waits for images")
	pflag.Duration("autosave", cfg.AutosaveDelay, "Quiet period before a draft is saved")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maximagesize", cfg.MaxImageSize, "Maximum photo size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "datadir", "store", "redisaddr", "scale",
		"format", "orientation", "capturetimeout", "autosave", "loglevel", "maximagesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Biodata - A Model Context Protocol server for building and exporting biodata PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/exports            # stdio mode with custom output directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081         # HTTP API and MCP over SSE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --store=redis --redisaddr=db:6379 # drafts in redis\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_MODE            Server mode\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_DIR             Output directory\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_DATADIR         Draft database directory\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_STORE           Draft store backend\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_REDISADDR       Redis address\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_SCALE           Default capture scale\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_FORMAT          Default page format\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_ORIENTATION     Default orientation\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_CAPTURETIMEOUT  Image wait timeout\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_AUTOSAVE        Autosave delay\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_LOGLEVEL        Log level\n")
		fmt.Fprintf(os.Stderr, "  BIODATA_MAXIMAGESIZE    Maximum photo size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.OutputDirectory = viper.GetString("dir")
	cfg.DataDirectory = viper.GetString("datadir")
	cfg.StoreBackend = viper.GetString("store")
	cfg.RedisAddr = viper.GetString("redisaddr")
	cfg.DefaultScale = viper.GetFloat64("scale")
	cfg.DefaultFormat = viper.GetString("format")
	cfg.DefaultOrientation = viper.GetString("orientation")
	cfg.CaptureTimeout = viper.GetDuration("capturetimeout")
	cfg.AutosaveDelay = viper.GetDuration("autosave")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxImageSize = viper.GetInt64("maximagesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters in server mode
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate output directory, create it if it doesn't exist
	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}
	if err := ensureDirectory(c.OutputDirectory); err != nil {
		return err
	}

	// Validate draft store settings
	switch c.StoreBackend {
	case StoreSQLite:
		if c.DataDirectory == "" {
			return errors.New("data directory cannot be empty for the sqlite store")
		}
		if err := ensureDirectory(c.DataDirectory); err != nil {
			return err
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address cannot be empty for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid store backend: %s (must be one of: sqlite, redis, memory)", c.StoreBackend)
	}

	// Validate max image size
	if c.MaxImageSize <= 0 {
		return errors.New("maximum image size must be positive")
	}
	// Validate export defaults
	if c.DefaultScale <= 0 {
		return errors.New("default scale must be positive")
	}
	if c.DefaultFormat != "a4" && c.DefaultFormat != "letter" {
		return fmt.Errorf("invalid format: %s (must be a4 or letter)", c.DefaultFormat)
	}
	if c.DefaultOrientation != "portrait" && c.DefaultOrientation != "landscape" {
		return fmt.Errorf("invalid orientation: %s (must be portrait or landscape)", c.DefaultOrientation)
	}
	if c.CaptureTimeout <= 0 {
		return errors.New("capture timeout must be positive")
	}
	if c.AutosaveDelay <= 0 {
		return errors.New("autosave delay must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ensureDirectory creates dir when it does not exist
func ensureDirectory(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, OutputDirectory: %s, Store: %s, LogLevel: %s, MaxImageSize: %d}",
		c.Mode, c.Host, c.Port, c.OutputDirectory, c.StoreBackend, c.LogLevel, c.MaxImageSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
