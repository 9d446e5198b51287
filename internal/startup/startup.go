package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"variant-server/internal/logging"
	"variant-server/internal/responsive"
	"variant-server/internal/variant"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	MediaDir    string
	LedgerDir   string
	Port        string
	MetricsPort string
	URLPrefix   string

	Deferred          bool
	GenerationTimeout time.Duration
	ProfilePath       string

	LogHealthChecks bool
	MetricsEnabled  bool
	WatcherEnabled  bool

	// Derived
	LedgerPath    string
	LedgerEnabled bool

	// Parsed responsive profile
	Profile   *responsive.Profile
	Factors   []float64
	Fractions []responsive.Fraction
	Defaults  variant.Options
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env file")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	ledgerDir := getEnv("LEDGER_DIR", "/data")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	urlPrefix := getEnv("URL_PREFIX", "/media")
	profilePath := getEnv("PROFILE_FILE", "")
	deferred := getEnvBool("DEFERRED_GENERATION", false)
	generationTimeout := getEnvDuration("GENERATION_TIMEOUT", 30*time.Second)
	watcherEnabled := getEnvBool("WATCH_SOURCES", true)
	ledgerWanted := getEnvBool("LEDGER_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  MEDIA_DIR:           %s", mediaDir)
	logging.Info("  LEDGER_DIR:          %s", ledgerDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  URL_PREFIX:          %s", urlPrefix)
	logging.Info("  PROFILE_FILE:        %s", orBuiltin(profilePath))
	logging.Info("  DEFERRED_GENERATION: %v", deferred)
	logging.Info("  GENERATION_TIMEOUT:  %s", generationTimeout)
	logging.Info("  WATCH_SOURCES:       %v", watcherEnabled)
	logging.Info("  LEDGER_ENABLED:      %v", ledgerWanted)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	mediaDir, err := filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	ledgerDir, err = filepath.Abs(ledgerDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ledger directory path: %w", err)
	}
	logging.Info("  Ledger directory (absolute): %s", ledgerDir)

	// Derivatives are written next to their sources, so the media directory
	// must exist and be writable.
	if err := ensureDirectory(mediaDir, "media"); err != nil {
		return nil, fmt.Errorf("media directory error: %w", err)
	}
	logging.Debug("  Testing media directory write access...")
	if err := testWriteAccess(mediaDir); err != nil {
		return nil, fmt.Errorf("media directory is not writable (derivatives are stored alongside sources): %w", err)
	}
	logging.Info("  [OK] Media directory is writable")

	config := &Config{
		MediaDir:          mediaDir,
		LedgerDir:         ledgerDir,
		Port:              port,
		MetricsPort:       metricsPort,
		URLPrefix:         urlPrefix,
		Deferred:          deferred,
		GenerationTimeout: generationTimeout,
		ProfilePath:       profilePath,
		LogHealthChecks:   logHealthChecks,
		MetricsEnabled:    metricsEnabled,
		WatcherEnabled:    watcherEnabled,
		LedgerPath:        filepath.Join(ledgerDir, "variations.db"),
	}

	// Ledger is optional: a read-only ledger directory downgrades it rather
	// than failing startup.
	config.LedgerEnabled = ledgerWanted && setupOptionalDir(ledgerDir, "ledger")

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("RESPONSIVE PROFILE")
	logging.Info("------------------------------------------------------------")

	settings, err := LoadProfile(profilePath)
	if err != nil {
		return nil, fmt.Errorf("profile error: %w", err)
	}
	config.Profile = settings.Profile
	config.Factors = settings.Factors
	config.Fractions = settings.Fractions
	config.Defaults = settings.Defaults

	logging.Info("  Source:      %s", orBuiltin(profilePath))
	logging.Info("  Breakpoints: %d (default %q)", len(config.Profile.Breakpoints.Order), config.Profile.Breakpoints.DefaultKey)
	logging.Info("  Ratios:      %d (default %q)", len(config.Profile.Ratios.Order), config.Profile.Ratios.DefaultKey)
	logging.Info("  Factors:     %v", config.Factors)
	logging.Info("  Fractions:   %d", len(config.Fractions))

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Ledger:  %s", enabledString(config.LedgerEnabled))
	logging.Info("    Watcher: %s", enabledString(config.WatcherEnabled))
	logging.Info("    Metrics: %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func orBuiltin(path string) string {
	if path == "" {
		return "(builtin)"
	}
	return path
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	testFile := filepath.Join(path, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("    failed to remove test file %s: %v", testFile, err)
		// Still return true since write succeeded
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogEngineInit logs transform engine initialization and codec availability
func LogEngineInit(webpAvailable, avifAvailable bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSFORM ENGINE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  jpeg/png/gif/bmp/tiff: pure Go codecs")
	logging.Info("  webp encode: %s", availableString(webpAvailable))
	logging.Info("  avif encode: %s", availableString(avifAvailable))

	if !webpAvailable || !avifAvailable {
		logging.Warn("  libvips backend unavailable; requests forcing the missing format will fail")
	}
}

func availableString(ok bool) string {
	if ok {
		return "available (libvips)"
	}
	return "UNAVAILABLE"
}

// LogLedgerInit logs ledger initialization
func LogLedgerInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("VARIATION LEDGER")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Ledger initialized in %v", duration)
}

// LogWatcherInit logs cleanup watcher startup
func LogWatcherInit(enabled bool) {
	if !enabled {
		logging.Info("  Source watcher disabled; stale derivatives persist until cleaned manually")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 _    __           _             __
| |  / /___ ______(_)___ _____  / /_
| | / / __ '/ ___/ / __ '/ __ \/ __/
| |/ / /_/ / /  / / /_/ / / / / /_
|___/\__,_/_/  /_/\__,_/_/ /_/\__/   server
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "media" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
