package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sv4u/mtag/tagger/config"
)

var (
	// Version is set at build time via ldflags
	// Example: go build -ldflags="-X main.Version=v1.2.3"
	Version = "dev"
)

const (
	defaultConfigPath = "mtag.yaml"
	defaultEnvFile    = ".env"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "version" || command == "--version" || command == "-v" {
		fmt.Printf("mtag version %s\n", Version)
		os.Exit(0)
	}

	switch command {
	case "serve":
		serveCommand()
	case "info":
		os.Exit(infoCommand(os.Args[2:], os.Stdout))
	case "search":
		os.Exit(searchCommand(os.Args[2:], os.Stdout))
	case "lyrics":
		os.Exit(lyricsCommand(os.Args[2:], os.Stdout))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mtag - review and fix MP3 tags against the NetEase catalog

USAGE:
    mtag <command> [flags]

COMMANDS:
    serve           Start the review web server
    info            Print the tracked tags of an MP3 file
    search          Search the catalog
    lyrics          Print the LRC lyrics of a catalog song
    version         Show version information

FLAGS:
    -h, --help    Show this help message

EXAMPLES:
    mtag serve --dir ~/Music
    mtag info "Jay Chou - Mojito.mp3"
    mtag search "Mojito"
    mtag lyrics 1436709403
`)
}

func serveCommand() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	envFile := fs.String("env", defaultEnvFile, "Path to .env file with MTAG_* overrides")
	port := fs.Int("port", 0, "HTTP server port (overrides config)")
	dir := fs.String("dir", "", "Music directory to open (defaults to the last one used)")

	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	server, err := NewServer(&ServerConfig{
		Config:  cfg,
		Dir:     *dir,
		Version: Version,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("mtag version %s", Version)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down gracefully...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		log.Println("Server stopped")
	case err := <-errChan:
		server.Shutdown(context.Background())
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfig reads the config file and applies environment overrides. A
// missing mtag.yaml in the working directory falls back to defaults.
func loadConfig(path, envFile string) (*config.MtagConfig, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	return cfg, nil
}
