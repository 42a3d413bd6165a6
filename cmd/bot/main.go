package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/xaenox/planner-bot/internal/bot"
	"github.com/xaenox/planner-bot/internal/event"
	"github.com/xaenox/planner-bot/internal/identity"
	"github.com/xaenox/planner-bot/internal/notify"
	"github.com/xaenox/planner-bot/internal/parser"
	"github.com/xaenox/planner-bot/internal/pending"
	"github.com/xaenox/planner-bot/internal/planner"
	"github.com/xaenox/planner-bot/internal/reminder"
	"github.com/xaenox/planner-bot/internal/scheduler"
	"github.com/xaenox/planner-bot/internal/storage"
	"github.com/xaenox/planner-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "planbot",
		Short:         "Telegram bot for reminders and group events",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	return cmd
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	loc, err := cfg.Planner.Location()
	if err != nil {
		return err
	}

	// Initialize delivery journal
	var journal storage.Journal
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory delivery journal")
		journal = storage.NewMemoryJournal()
	} else {
		logger.Info("Using PostgreSQL delivery journal")
		journal, err = storage.NewPostgresJournal(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
	}
	defer journal.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	sink := notify.NewTelegramSink(api, logger)

	sched := scheduler.New(scheduler.SystemClock(), logger)
	defer sched.Stop()

	identities := identity.NewResolver()
	reminders := reminder.NewStore(sched, sink, logger, reminder.Options{
		Grace:   cfg.Planner.Grace,
		Journal: journal,
	})
	events := event.NewStore(sched, identities)
	notifier := event.NewNotifier(events, sink, logger, event.NotifierOptions{
		Grace:    cfg.Planner.Grace,
		Journal:  journal,
		Location: loc,
	})

	var timeParser parser.Parser = parser.NewSimpleParser(sched.Now, loc)
	if cfg.OpenAI.APIKey != "" {
		logger.Info("Using GPT time parser", zap.String("model", cfg.OpenAI.Model))
		timeParser = parser.NewGPTParser(parser.GPTConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		}, parser.NewSimpleParser(sched.Now, loc), logger)
	}

	svc := planner.New(planner.Deps{
		Reminders:      reminders,
		Events:         events,
		Notifier:       notifier,
		Identities:     identities,
		Router:         pending.NewRouter(),
		Parser:         timeParser,
		Sink:           sink,
		Journal:        journal,
		Now:            sched.Now,
		Location:       loc,
		Grace:          cfg.Planner.Grace,
		IncludeCreator: cfg.Planner.IncludeCreator,
		HistoryLimit:   cfg.Planner.HistoryLimit,
		Logger:         logger,
	})

	b := bot.New(api, sink, svc, cfg.Telegram.Timeout, logger)
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
		return err
	}
	return nil
}
