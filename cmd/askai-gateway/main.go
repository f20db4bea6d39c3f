// ABOUTME: Entry point for the askai-gateway question coordination server
// ABOUTME: Provides serve, init, health, and tick subcommands

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/askai-gateway/internal/config"
	"github.com/2389/askai-gateway/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _         _                  _
  __ _ ___| | ____ _(_)       __ _  __ _| |_ _____      ____ _ _   _
 / _' / __| |/ / _' | |_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| (_| \__ \   < (_| | |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 \__,_|___/_|\_\__,_|_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                             |___/                             |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: ASKAI_CONFIG env var > XDG_CONFIG_HOME/askai/gateway.yaml > ~/.config/askai/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ASKAI_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "askai", "gateway.yaml")
}

// getDataPath returns the path to the askai data directory.
// Priority: XDG_DATA_HOME/askai > ~/.local/share/askai
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "askai")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: askai-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the gateway server")
		fmt.Println("  init    Create a new config file interactively")
		fmt.Println("  health  Check gateway health")
		fmt.Println("  tick    Run one answer worker pass and exit")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "tick":
		err = runTick(ctx)
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

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Hub:        %s\n", cfg.SignalR.Hub)

	if cfg.Worker.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Worker:     every %s\n", cfg.Worker.Interval)
	}
	if cfg.Moderation.Endpoint == "" {
		yellow.Print("    ▶ ")
		fmt.Println("Moderation: disabled")
	}

	// Tailscale status
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale:  ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting askai-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	// Create and run gateway
	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runTick loads the config, runs one answer worker pass, and exits.
// Meant for external schedulers (cron, systemd timers) that prefer to
// drive answering themselves instead of the in-process ticker.
func runTick(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	defer func() {
		if err := gw.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	return gw.Tick(ctx)
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
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("askai-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "askai.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// SignalR broker
	fmt.Println("\n--- Realtime Broker Configuration ---")
	signalrEndpoint := prompt(reader, "SignalR endpoint (e.g. https://askai.service.signalr.net)", "")
	signalrHub := prompt(reader, "SignalR hub", "askai")
	signalrKey := prompt(reader, "SignalR access key (or ${ENV_VAR} reference)", "${ASKAI_SIGNALR_KEY}")

	// Moderation
	fmt.Println("\n--- Moderation Configuration ---")
	moderationEndpoint := prompt(reader, "Content safety endpoint (empty to disable)", "")
	var moderationKey string
	if moderationEndpoint != "" {
		moderationKey = prompt(reader, "Content safety API key (or ${ENV_VAR} reference)", "${ASKAI_MODERATION_KEY}")
	}

	// Completion
	fmt.Println("\n--- Completion Configuration ---")
	completionEndpoint := prompt(reader, "Completion endpoint (empty to disable answering)", "")
	var completionKey, completionModel string
	workerEnabled := false
	if completionEndpoint != "" {
		completionKey = prompt(reader, "Completion API key (or ${ENV_VAR} reference)", "${ASKAI_COMPLETION_KEY}")
		completionModel = prompt(reader, "Completion model", "gpt-4o")
		workerEnabled = isYes(prompt(reader, "Run the answer worker in-process?", "yes"))
	}

	// Tailscale
	fmt.Println("\n--- Tailscale Configuration ---")
	tailscaleEnabled := isYes(prompt(reader, "Enable Tailscale?", "no"))

	var tsHostname, tsAuthKey string
	var tsEphemeral, tsFunnel bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "askai-gateway")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty for TS_AUTHKEY)", "")
		tsEphemeral = isYes(prompt(reader, "Ephemeral node?", "no"))
		tsFunnel = isYes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# askai-gateway configuration\n")
	cfg.WriteString("# Generated by askai-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("signalr:\n")
	cfg.WriteString(fmt.Sprintf("  endpoint: \"%s\"\n", signalrEndpoint))
	cfg.WriteString(fmt.Sprintf("  hub: \"%s\"\n", signalrHub))
	cfg.WriteString(fmt.Sprintf("  access_key: \"%s\"\n", signalrKey))
	cfg.WriteString("\n")

	if moderationEndpoint != "" {
		cfg.WriteString("moderation:\n")
		cfg.WriteString(fmt.Sprintf("  endpoint: \"%s\"\n", moderationEndpoint))
		cfg.WriteString(fmt.Sprintf("  api_key: \"%s\"\n", moderationKey))
		cfg.WriteString("\n")
	}

	if completionEndpoint != "" {
		cfg.WriteString("completion:\n")
		cfg.WriteString(fmt.Sprintf("  endpoint: \"%s\"\n", completionEndpoint))
		cfg.WriteString(fmt.Sprintf("  api_key: \"%s\"\n", completionKey))
		cfg.WriteString(fmt.Sprintf("  model: \"%s\"\n", completionModel))
		cfg.WriteString("\n")

		cfg.WriteString("worker:\n")
		cfg.WriteString(fmt.Sprintf("  enabled: %t\n", workerEnabled))
		cfg.WriteString("  interval: \"1m\"\n")
		cfg.WriteString("\n")
	}

	cfg.WriteString("submissions:\n")
	cfg.WriteString("  cooldown: \"20s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: \"%s\"\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: \"%s\"\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", tsFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  askai-gateway serve\n")

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
