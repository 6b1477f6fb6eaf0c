package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tajerhq/tajerbot/internal/api"
	"github.com/tajerhq/tajerbot/internal/cache"
	"github.com/tajerhq/tajerbot/internal/classifier"
	"github.com/tajerhq/tajerbot/internal/commerce"
	"github.com/tajerhq/tajerbot/internal/intent"
	"github.com/tajerhq/tajerbot/internal/messaging"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/refcontext"
	"github.com/tajerhq/tajerbot/internal/router"
	"github.com/tajerhq/tajerbot/internal/store"
	"github.com/tajerhq/tajerbot/internal/twiliowhatsapp"
	"github.com/tajerhq/tajerbot/internal/util"
	"github.com/tajerhq/tajerbot/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for TajerBot state data
	DefaultStateDir = "/var/lib/tajerbot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "tajerbot.db"
	// DefaultTenantID is the tenant inbound channel messages are attributed to
	// when no tenant is configured.
	DefaultTenantID = "default"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping TajerBot",
		"tenant_id", *flags.tenantID,
		"backend", *flags.backend,
		"dsn_set", *flags.dbDSN != "",
		"redis_set", *flags.redisAddr != "",
		"openai_set", *flags.openaiKey != "")
	if err := run(ctx, flags); err != nil {
		slog.Error("TajerBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("TajerBot exited successfully")
}

func run(ctx context.Context, flags Flags) error {
	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := openCache(ctx, flags)
	if err != nil {
		return err
	}

	repo, err := openCatalog(flags)
	if err != nil {
		return err
	}

	var gateway classifier.Gateway
	if *flags.openaiKey != "" {
		gw, err := classifier.NewOpenAIGateway(intentLabels(), classifier.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		gateway = gw
		slog.Info("External classifier enabled")
	} else {
		slog.Info("No OpenAI API key configured, external classification disabled")
	}

	pipeline := intent.NewPipeline(gateway, classifier.NewBudget(st), st)
	refs := refcontext.NewManager(st, c)
	rt := router.NewRouter(repo, refs)

	sweeper := refcontext.NewSweeper(st, refcontext.DefaultSweepInterval)
	go sweeper.Run(ctx)

	svc, apiOpts, err := openMessaging(flags)
	if err != nil {
		return err
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}

	dispatcher := messaging.NewDispatcher(st, pipeline, rt, svc, *flags.tenantID)
	if svc != nil {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := svc.Stop(); err != nil {
				slog.Error("Failed to stop messaging service", "error", err)
			}
		}()
		go dispatcher.Run(ctx)
	}

	return api.NewServer(dispatcher, st, apiOpts...).Run(ctx)
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	WhatsAppDSN string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	TenantID    string
	Backend     string
	RedisAddr   string
	RedisPass   string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput  *string
	numeric   *bool
	stateDir  *string
	dbDSN     *string
	waDSN     *string
	openaiKey *string
	apiAddr   *string
	tenantID  *string
	backend   *string
	redisAddr *string
	redisPass *string
	redisDB   int
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
		DatabaseURL: os.Getenv("DATABASE_URL"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
		StateDir:    os.Getenv("TAJERBOT_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		TenantID:    os.Getenv("TENANT_ID"),
		Backend:     os.Getenv("MESSAGING_BACKEND"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.TenantID == "" {
		config.TenantID = DefaultTenantID
	}
	if config.Backend == "" {
		config.Backend = "none"
	}
	// The WhatsApp session store defaults to its own SQLite file in the state
	// directory rather than sharing the application database.
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, "whatsmeow.db")
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"TAJERBOT_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"TENANT_ID", config.TenantID,
		"MESSAGING_BACKEND", config.Backend,
		"REDIS_ADDR", config.RedisAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:  flag.String("qr-output", "", "path to write login QR code"),
		numeric:   flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for TajerBot data (overrides $TAJERBOT_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "application database DSN (overrides $DATABASE_URL)"),
		waDSN:     flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "WhatsApp session database DSN (overrides $WHATSAPP_DB_DSN)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		tenantID:  flag.String("tenant-id", config.TenantID, "tenant id of the inbound channel (overrides $TENANT_ID)"),
		backend:   flag.String("backend", config.Backend, "messaging backend: whatsapp, twilio or none (overrides $MESSAGING_BACKEND)"),
		redisAddr: flag.String("redis-addr", config.RedisAddr, "Redis address for the reference context cache (overrides $REDIS_ADDR)"),
		redisPass: flag.String("redis-password", config.RedisPass, "Redis password (overrides $REDIS_PASSWORD)"),
		redisDB:   util.ParseIntEnv("REDIS_DB", 0),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"waDSN_set", *flags.waDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"tenantID", *flags.tenantID,
		"backend", *flags.backend,
		"redisAddr", *flags.redisAddr)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.dbDSN, *flags.waDSN} {
		if dsn == "" || store.DetectDSNType(dsn) == "postgres" {
			continue
		}
		dir := filepath.Dir(strings.TrimPrefix(dsn, "file:"))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		slog.Debug("State directory ensured", "dir", dir)
	}
	return nil
}

func openStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Warn("No database DSN provided, using in-memory store; state is lost on restart")
		return store.NewInMemoryStore(), nil
	}
	slog.Debug("Opening application store", "dsn_type", store.DetectDSNType(*flags.dbDSN))
	return store.Open(store.WithDSN(*flags.dbDSN))
}

func openCache(ctx context.Context, flags Flags) (cache.Cache, error) {
	if *flags.redisAddr == "" {
		slog.Debug("No Redis address configured, using in-process cache")
		return cache.NewMemoryCache(), nil
	}
	slog.Debug("Connecting Redis cache", "addr", *flags.redisAddr, "db", flags.redisDB)
	return cache.NewRedisCache(ctx, *flags.redisAddr, *flags.redisPass, flags.redisDB)
}

func openCatalog(flags Flags) (commerce.Repo, error) {
	if *flags.dbDSN == "" {
		slog.Warn("No database DSN provided, using in-memory catalog")
		return commerce.NewInMemoryRepo(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return commerce.NewPostgresRepo(*flags.dbDSN)
	}
	return commerce.NewSQLiteRepo(*flags.dbDSN)
}

// openMessaging builds the configured messaging backend. The Twilio backend
// additionally returns the webhook mount for the API server.
func openMessaging(flags Flags) (messaging.Service, []api.Option, error) {
	switch *flags.backend {
	case "whatsapp":
		var waOpts []whatsapp.Option
		if *flags.waDSN != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDSN))
		}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewWhatsAppService(client), nil, nil
	case "twilio":
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewTwilioService(client)
		return svc, []api.Option{api.WithTwilioWebhook(svc.TwilioWebhookHandler)}, nil
	case "none", "":
		slog.Info("Messaging backend disabled, running API-only")
		return nil, nil, nil
	default:
		slog.Warn("Unknown messaging backend, running API-only", "backend", *flags.backend)
		return nil, nil, nil
	}
}

// intentLabels builds the closed label vocabulary offered to the external
// classifier.
func intentLabels() []string {
	labels := make([]string, len(models.AllIntents))
	for i, intent := range models.AllIntents {
		labels[i] = string(intent)
	}
	return labels
}
