// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/dkoksal/mira/internal/awareness"
	"github.com/dkoksal/mira/internal/bot"
	"github.com/dkoksal/mira/internal/bot/handlers"
	"github.com/dkoksal/mira/internal/bot/tasks"
	"github.com/dkoksal/mira/internal/config"
	"github.com/dkoksal/mira/internal/database"
	"github.com/dkoksal/mira/internal/gemini"
	"github.com/dkoksal/mira/internal/logger"
	"github.com/dkoksal/mira/internal/memory"
	"github.com/dkoksal/mira/internal/prompt"
	"github.com/dkoksal/mira/internal/style"
	"github.com/dkoksal/mira/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	bounds := memory.Bounds{
		ShortTerm: cfg.Memory.ShortTermSize,
		LongTerm:  cfg.Memory.LongTermSize,
	}
	memStore := memory.NewStore(store, bounds, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	selector, err := style.NewSelector(cfg.Style)
	if err != nil {
		log.Error("Invalid style configuration", "error", err)
		return 1
	}

	assembler := prompt.NewAssembler(prompt.Config{
		ShortTermSize:  cfg.Memory.ShortTermSize,
		LongTermWindow: cfg.Memory.LongTermWindow,
		MaxChars:       cfg.Memory.MaxContextChars,
	})

	hDeps := handlers.HandlerDeps{
		Logger:       log,
		Config:       cfg,
		Store:        store,
		Memory:       memStore,
		GeminiClient: gemClient,
		Awareness:    awareness.NewProvider(log, cfg.Awareness.RefreshInterval),
		Selector:     selector,
		Assembler:    assembler,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewChatHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	// Retrieve bot identity for mention detection and message texts.
	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	cfg.Telegram.BotInfo = config.BotInfo{ID: me.ID, Username: me.Username, FirstName: me.FirstName}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, db, store, gemClient, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
