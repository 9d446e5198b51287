package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"variant-server/internal/ledger"
	"variant-server/internal/queue"
	"variant-server/internal/service"
	"variant-server/internal/srcset"
	"variant-server/internal/startup"
	"variant-server/internal/transform"
	"variant-server/internal/variant"

	"golang.org/x/term"
)

const (
	// Default timeout for a single generation
	defaultTimeout = 30 * time.Second
	// Default media tree root
	defaultMediaDir = "/media"
	// Default ledger directory
	defaultLedgerDir = "/data"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Flags ride after the command; only two exist.
	var assumeYes, vacuum bool
	for _, arg := range os.Args[2:] {
		switch arg {
		case "-y", "--yes":
			assumeYes = true
		case "-vacuum", "--vacuum":
			vacuum = true
		default:
			fmt.Fprintf(os.Stderr, "Unknown flag: %s\n", arg)
			printUsage()
			os.Exit(1)
		}
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	if err := transform.InitVips(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: libvips unavailable, webp/avif output will fail: %v\n", err)
	}
	defer transform.ShutdownVips()

	ok := false
	switch command {
	case "pregenerate":
		ok = cmdPregenerate(ctx)
	case "flush":
		ok = cmdFlush(ctx)
	case "cleanup":
		ok = cmdCleanup(ctx, assumeYes, vacuum)
	case "stats":
		ok = cmdStats(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Variant server maintenance tool")
	fmt.Println("")
	fmt.Println("Usage: variantctl <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  pregenerate  - Generate the responsive ladder for every source ahead of traffic")
	fmt.Println("  flush        - Fulfill all pending queue descriptors now")
	fmt.Println("  cleanup      - Remove derivatives whose source is gone (-y to skip the prompt,")
	fmt.Println("                 -vacuum to compact the ledger afterwards)")
	fmt.Println("  stats        - Show ledger totals")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  MEDIA_DIR    - Media tree root (default: %s)\n", defaultMediaDir)
	fmt.Printf("  LEDGER_DIR   - Ledger directory (default: %s)\n", defaultLedgerDir)
	fmt.Println("  PROFILE_FILE - Responsive profile YAML (default: built-in profile)")
	fmt.Println("  LEDGER_ENABLED, GENERATION_TIMEOUT, VARIANT_WORKERS are honored as for the server")
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// stack is the slice of the server the maintenance commands need.
type stack struct {
	svc    *service.Service
	ledger *ledger.Ledger // nil when disabled or unavailable
	root   string
}

func (s *stack) close() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close ledger: %v\n", err)
		}
	}
}

// buildStack assembles an immediate-mode service over MEDIA_DIR, mirroring
// the server's wiring. Commands generate synchronously regardless of the
// server's deferred setting.
func buildStack(ctx context.Context) (*stack, error) {
	root, err := filepath.Abs(envOr("MEDIA_DIR", defaultMediaDir))
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("media directory %s is not accessible", root)
	}

	settings, err := startup.LoadProfile(os.Getenv("PROFILE_FILE"))
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if raw := os.Getenv("GENERATION_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	var led *ledger.Ledger
	ledgerEnabled := true
	if raw := os.Getenv("LEDGER_ENABLED"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			ledgerEnabled = v
		}
	}
	if ledgerEnabled {
		dbPath := filepath.Join(envOr("LEDGER_DIR", defaultLedgerDir), "variations.db")
		led, err = ledger.Open(ctx, dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ledger unavailable, continuing without bookkeeping: %v\n", err)
			led = nil
		}
	}

	sizes := variant.NewSizes()
	srcset.RegisterNamedSizes(sizes, settings.Profile, settings.Fractions)

	engine := transform.NewEngine(root)
	svc := service.New(service.Config{
		Root:      root,
		URLPrefix: envOr("URL_PREFIX", "/media"),
		Deferred:  false,
		Timeout:   timeout,
		Profile:   settings.Profile,
		Factors:   settings.Factors,
		Resolver:  variant.NewResolver(settings.Defaults, sizes, root),
		Engine:    engine,
		Queue:     queue.New(root, engine, timeout),
		Ledger:    led,
	})

	return &stack{svc: svc, ledger: led, root: root}, nil
}

// confirm asks on the terminal before destructive work. Without a terminal
// it refuses, so scripted runs must pass -y explicitly.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprintln(os.Stderr, "Error: no terminal for confirmation; pass -y to proceed")
		return false
	}

	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
