package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/InterviewDeck/internal/api"
	"github.com/BTreeMap/InterviewDeck/internal/botguard"
	"github.com/BTreeMap/InterviewDeck/internal/cache"
	"github.com/BTreeMap/InterviewDeck/internal/flow"
	"github.com/BTreeMap/InterviewDeck/internal/genai"
	"github.com/BTreeMap/InterviewDeck/internal/interview"
	"github.com/BTreeMap/InterviewDeck/internal/lockfile"
	"github.com/BTreeMap/InterviewDeck/internal/notify"
	"github.com/BTreeMap/InterviewDeck/internal/registry"
	"github.com/BTreeMap/InterviewDeck/internal/scheduler"
	"github.com/BTreeMap/InterviewDeck/internal/supa"
	"github.com/BTreeMap/InterviewDeck/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for InterviewDeck state data
	DefaultStateDir = "/var/lib/interviewdeck"
	// DefaultDBFileName is the default SQLite cache database filename
	DefaultDBFileName = "interviewdeck.db"
	// DefaultRefreshCron refreshes the company registry twice an hour
	DefaultRefreshCron = "*/30 * * * *"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Hold the state directory for the process lifetime
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	store := openCacheStore(flags)
	defer store.Close()

	// Hosted store client is optional: without it the loaders run on
	// fallbacks and account creation is disabled.
	var hosted *supa.Client
	if *flags.supabaseURL != "" && *flags.supabaseKey != "" {
		hosted, err = supa.NewClient(supa.WithURL(*flags.supabaseURL), supa.WithServiceKey(*flags.supabaseKey))
		if err != nil {
			slog.Error("Failed to create hosted store client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("Supabase not configured, serving bundled fallback data only")
	}

	registryLoader := buildRegistryLoader(flags, hosted, store)
	flowLoader := buildFlowLoader(flags, hosted, registryLoader, store)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if hosted != nil {
		if err := sched.AddRegistryRefresh(*flags.refreshCron, registryLoader); err != nil {
			slog.Error("Failed to schedule registry refresh", "error", err, "cron", *flags.refreshCron)
			os.Exit(1)
		}
	}

	interviews := buildInterviewManager(flags, hosted)
	defer interviews.Stop()

	apiOpts := buildAPIOptions(flags)
	var accounts api.AccountCreator
	if hosted != nil {
		accounts = hosted
	}
	server := api.NewServer(registryLoader, flowLoader, interviews, botguard.NewGuard(store), accounts, apiOpts...)

	// Start the service
	slog.Info("Bootstrapping InterviewDeck with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"supabase_configured", hosted != nil)

	go handleShutdown(server)
	if err := server.Run(); err != nil {
		slog.Error("InterviewDeck failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("InterviewDeck exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	APIAddr       string
	SupabaseURL   string
	SupabaseKey   string
	QuestionDir   string
	RecordingsDir string
	RefreshCron   string
	TrustCache    bool
	SMSEnabled    bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	openaiKey     *string
	apiAddr       *string
	supabaseURL   *string
	supabaseKey   *string
	questionDir   *string
	recordingsDir *string
	refreshCron   *string
	trustCache    *bool
	smsEnabled    *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("INTERVIEWDECK_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		SupabaseURL:   os.Getenv("SUPABASE_URL"),
		SupabaseKey:   os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		QuestionDir:   os.Getenv("QUESTION_SETS_DIR"),
		RecordingsDir: os.Getenv("RECORDINGS_DIR"),
		RefreshCron:   os.Getenv("REGISTRY_REFRESH_CRON"),
		TrustCache:    util.ParseBoolEnv("TRUST_CACHE", false),
		SMSEnabled:    util.ParseBoolEnv("SMS_WELCOME_ENABLED", false),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No INTERVIEWDECK_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.RefreshCron == "" {
		config.RefreshCron = DefaultRefreshCron
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"INTERVIEWDECK_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"SUPABASE_URL_SET", config.SupabaseURL != "",
		"QUESTION_SETS_DIR", config.QuestionDir,
		"RECORDINGS_DIR", config.RecordingsDir,
		"REGISTRY_REFRESH_CRON", config.RefreshCron,
		"TRUST_CACHE", config.TrustCache,
		"SMS_WELCOME_ENABLED", config.SMSEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for InterviewDeck data (overrides $INTERVIEWDECK_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "cache database DSN, SQLite path or Postgres URL (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		supabaseURL:   flag.String("supabase-url", config.SupabaseURL, "Supabase project URL (overrides $SUPABASE_URL)"),
		supabaseKey:   flag.String("supabase-key", config.SupabaseKey, "Supabase service role key (overrides $SUPABASE_SERVICE_ROLE_KEY)"),
		questionDir:   flag.String("question-sets-dir", config.QuestionDir, "directory of per-question-set JSON documents (overrides $QUESTION_SETS_DIR)"),
		recordingsDir: flag.String("recordings-dir", config.RecordingsDir, "local directory for recording fallback storage (overrides $RECORDINGS_DIR)"),
		refreshCron:   flag.String("registry-refresh-cron", config.RefreshCron, "cron expression for registry refresh (overrides $REGISTRY_REFRESH_CRON)"),
		trustCache:    flag.Bool("trust-cache", config.TrustCache, "serve cached registry data without freshness checks (overrides $TRUST_CACHE)"),
		smsEnabled:    flag.Bool("sms-welcome", config.SMSEnabled, "send SMS welcomes on account creation (overrides $SMS_WELCOME_ENABLED)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"supabaseURL_set", *flags.supabaseURL != "",
		"questionDir", *flags.questionDir,
		"recordingsDir", *flags.recordingsDir,
		"refreshCron", *flags.refreshCron,
		"trustCache", *flags.trustCache,
		"smsEnabled", *flags.smsEnabled)

	// Follow the state directory when the DSN was left at its derived default
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}
	if *flags.questionDir == "" {
		*flags.questionDir = filepath.Join(*flags.stateDir, "question-sets")
	}
	if *flags.recordingsDir == "" {
		*flags.recordingsDir = filepath.Join(*flags.stateDir, "recordings")
	}

	return flags
}

// openCacheStore opens the persistent cache backing the loaders and the bot
// guard, choosing the backend by DSN shape.
func openCacheStore(flags Flags) cache.Store {
	if cache.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL cache", "dsn_set", true)
		store, err := cache.NewPostgresStore(cache.WithPostgresDSN(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to open PostgreSQL cache", "error", err)
			os.Exit(1)
		}
		return store
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite cache", "db_path", *flags.dbDSN)
	store, err := cache.NewSQLiteStore(cache.WithSQLiteDSN(*flags.dbDSN))
	if err != nil {
		slog.Error("Failed to open SQLite cache", "error", err)
		os.Exit(1)
	}
	return store
}

// buildRegistryLoader wires the registry loader over the hosted store.
func buildRegistryLoader(flags Flags, hosted *supa.Client, store cache.Store) *registry.Loader {
	var regOpts []registry.Option
	if *flags.trustCache {
		regOpts = append(regOpts, registry.WithTrustCache(true))
	}
	var source registry.CompanySource
	if hosted != nil {
		source = hosted
	} else {
		source = unavailableCompanySource{}
	}
	return registry.NewLoader(source, store, regOpts...)
}

// buildFlowLoader wires the flow graph loader over the hosted store.
func buildFlowLoader(flags Flags, hosted *supa.Client, reg *registry.Loader, store cache.Store) *flow.Loader {
	var source flow.MenuSource
	if hosted != nil {
		source = hosted
	} else {
		source = unavailableMenuSource{}
	}
	return flow.NewLoader(source, reg, store)
}

// buildInterviewManager wires capture sessions with hosted recording storage
// when available, local directory storage otherwise.
func buildInterviewManager(flags Flags, hosted *supa.Client) *interview.Manager {
	questions := interview.NewFileQuestionSource(*flags.questionDir)
	var recordings interview.RecordingStore
	if hosted != nil {
		recordings = supaRecordingStore{client: hosted}
	} else {
		local, err := interview.NewDirRecordingStore(*flags.recordingsDir)
		if err != nil {
			slog.Error("Failed to create local recordings directory", "error", err, "dir", *flags.recordingsDir)
			os.Exit(1)
		}
		recordings = local
	}
	return interview.NewManager(questions, recordings)
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.openaiKey != "" {
		gen, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Error("Failed to create GenAI client", "error", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, api.WithGenerator(gen))
	} else {
		slog.Debug("No OpenAI API key, using local preambles")
	}
	if *flags.smsEnabled {
		sender, err := notify.NewClient()
		if err != nil {
			slog.Error("Failed to create Twilio client", "error", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, api.WithNotifier(sender))
	}
	return apiOpts
}

// handleShutdown stops the API server on SIGINT/SIGTERM.
func handleShutdown(server *api.Server) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	slog.Info("Shutdown signal received", "signal", s)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
