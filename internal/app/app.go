package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"

	"shared-menu/internal/api"
	"shared-menu/internal/clipper"
	"shared-menu/internal/config"
	"shared-menu/internal/database"
	"shared-menu/internal/dish"
	"shared-menu/internal/events"
	"shared-menu/internal/llm"
	"shared-menu/internal/logger"
	"shared-menu/internal/metrics"
	"shared-menu/internal/shopping"
	"shared-menu/internal/telegram"
)

// redisPrefix namespaces change channels on a shared Redis server.
const redisPrefix = "shared-menu"

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	db           *database.DB
	broker       events.Broker
	textGen      llm.TextGenerator
	metricsStore *metrics.Store
	dishRepo     *dish.Repository
	shoppingRepo *shopping.Repository
	shopping     *shopping.Service
	notifier     *telegram.Notifier
	font         *shopping.Font
	server       *api.Server
}

// New builds every component from cfg. The text generator is chosen by
// cfg.TextGenProvider.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateTextGen(); err != nil {
		return nil, err
	}
	textGen, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text generation: %w", err)
	}
	a, err := NewWithTextGenerator(ctx, cfg, textGen)
	if err != nil {
		_ = llm.Close(textGen)
		return nil, err
	}
	return a, nil
}

// NewWithTextGenerator builds the application around an existing generator.
// The App takes ownership of textGen once it is returned; on error the
// caller still owns it.
func NewWithTextGenerator(ctx context.Context, cfg *config.Config, textGen llm.TextGenerator) (*App, error) {
	logger.SetDebug(cfg.IsDevelopment())

	var font *shopping.Font
	if cfg.RenderFontPath != "" {
		f, err := shopping.LoadFont(cfg.RenderFontPath)
		if err != nil {
			return nil, err
		}
		font = f
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := newStorage(cfg, broker)
	if err != nil {
		_ = broker.Close()
		return nil, err
	}
	a.font = font
	a.shopping = shopping.NewService(a.shoppingRepo, textGen, a.metricsStore)

	if cfg.TelegramEnabled() {
		if err := a.connectTelegram(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.textGen = textGen

	deps := api.Deps{
		Dishes:         a.dishRepo,
		Suggester:      dish.NewSuggester(textGen, a.metricsStore),
		Clipper:        clipper.NewClipper(textGen, a.metricsStore),
		Shopping:       a.shopping,
		Subscriber:     broker,
		Metrics:        a.metricsStore,
		Font:           font,
		DatabasePath:   cfg.DatabasePath,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestLogging: cfg.IsDevelopment(),
	}
	if a.notifier != nil {
		deps.Sharer = a.notifier
	}
	a.server = api.NewServer(deps)
	return a, nil
}

// NewOffline opens the database and the repositories only, for commands that
// read or maintain stored data. It needs no text generation credentials,
// starts no HTTP server and connects to Telegram only when a command sends
// something there.
func NewOffline(cfg *config.Config) (*App, error) {
	logger.SetDebug(cfg.IsDevelopment())
	return newStorage(cfg, events.NewLocalBroker())
}

func newStorage(cfg *config.Config, broker events.Broker) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &App{
		cfg:          cfg,
		db:           db,
		broker:       broker,
		metricsStore: metrics.NewStore(db.SQL),
		dishRepo:     dish.NewRepository(db.SQL, broker),
		shoppingRepo: shopping.NewRepository(db.SQL, broker),
	}, nil
}

func (a *App) connectTelegram() error {
	bot, err := telegram.NewBotAPI(a.cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	a.notifier = telegram.NewNotifier(bot, a.cfg.TelegramChatID, a.font)
	return nil
}

func newBroker(ctx context.Context, cfg *config.Config) (events.Broker, error) {
	if cfg.RedisURL == "" {
		return events.NewLocalBroker(), nil
	}
	broker, err := events.NewRedisBroker(ctx, cfg.RedisURL, redisPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize change broker: %w", err)
	}
	logger.Info("Publishing changes over Redis")
	return broker, nil
}

// Server exposes the HTTP server, mostly for tests. It is nil for an
// offline App.
func (a *App) Server() *api.Server {
	return a.server
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	if a.server == nil {
		return fmt.Errorf("an offline application cannot serve")
	}
	if a.notifier != nil {
		sub, err := a.notifier.Watch(ctx, a.broker)
		if err != nil {
			return err
		}
		defer func() { _ = sub.Close() }()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(net.JoinHostPort("", a.cfg.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	if err := a.server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}

// ShoppingList returns the derived id of a set of dish ids and the list
// stored under it, if any.
func (a *App) ShoppingList(ctx context.Context, dishIDs []string) (string, *shopping.ShoppingList, error) {
	id := shopping.ListID(dishIDs)
	list, err := a.shoppingRepo.Get(ctx, id)
	if err != nil {
		return id, nil, fmt.Errorf("failed to load shopping list %s: %w", id, err)
	}
	return id, list, nil
}

// CleanupMetrics removes usage records older than days.
func (a *App) CleanupMetrics(days int) (int64, error) {
	return a.metricsStore.Cleanup(days)
}

// ReportUsage sends the usage of the last days to Telegram when it is
// configured, and prints it to w otherwise.
func (a *App) ReportUsage(days int, w io.Writer) error {
	usage, err := a.metricsStore.GetDailyUsage(days)
	if err != nil {
		return fmt.Errorf("failed to load usage: %w", err)
	}
	health := metrics.GetSysHealth(a.cfg.DatabasePath)

	if a.notifier == nil && a.cfg.TelegramEnabled() {
		if err := a.connectTelegram(); err != nil {
			return err
		}
	}
	if a.notifier != nil {
		return a.notifier.SendUsageReport(usage, health)
	}

	fmt.Fprintf(w, "=== USAGE (last %d days) ===\n", days)
	if len(usage) == 0 {
		fmt.Fprintln(w, "No data yet")
	}
	for _, u := range usage {
		fmt.Fprintf(w, "%-10s  prompt=%d completion=%d executions=%d\n", u.Date, u.TotalPrompt, u.TotalCompletion, u.TotalExecution)
	}
	fmt.Fprintf(w, "\nData disk: %s (%s)\n", health.DataDiskSize, filepath.Dir(a.cfg.DatabasePath))
	return nil
}

// Close releases the broker, the text generator and the database.
func (a *App) Close() error {
	if err := a.broker.Close(); err != nil {
		logger.Warn("failed to close change broker: %v", err)
	}
	if err := llm.Close(a.textGen); err != nil {
		logger.Warn("failed to close text generator: %v", err)
	}
	return a.db.Close()
}
