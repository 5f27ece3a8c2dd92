package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/iamvkosarev/legal-ai-assistant/internal/audio"
	"github.com/iamvkosarev/legal-ai-assistant/internal/audio/device"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	in_memory "github.com/iamvkosarev/legal-ai-assistant/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/legal-ai-assistant/internal/storage/key-value"
	"github.com/iamvkosarev/legal-ai-assistant/internal/storage/sqlite"
	"github.com/iamvkosarev/legal-ai-assistant/internal/usecase"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/logger"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/netstate"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	FrontendTerminal = "terminal"
	FrontendTelegram = "telegram"

	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"

	terminalHistoryFile = "terminal_history"
)

type Options struct {
	Frontend string
	Mode     model.ChatMode
}

// App holds the wired usecases of one process.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger

	sessions usecase.SessionStorage
	profiles usecase.ProfileStorage

	openAI  *usecase.OpenAIUsecase
	user    *usecase.UserUsecase
	history *usecase.HistoryUsecase
	chat    *usecase.ChatUsecase
	watcher *netstate.Watcher
	speaker *audio.Engine

	closers []func() error
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: log,
	}
	if err = a.openStorage(); err != nil {
		a.Close()
		return nil, err
	}

	a.openAI = usecase.NewOpenAIUsecase(cfg.Generation, log)

	a.user = usecase.NewUserUsecase(
		usecase.UserUsecaseDeps{
			ProfileStorage: a.profiles,
			Logger:         log,
		},
	)

	a.history = usecase.NewHistoryUsecase(
		usecase.HistoryUsecaseDeps{
			SessionStorage: a.sessions,
			Logger:         log,
		},
	)

	a.watcher = netstate.NewWatcher(
		cfg.Connectivity.ProbeAddress,
		cfg.Connectivity.Interval,
		cfg.Connectivity.Timeout,
	)
	a.watcher.OnChange(
		func(online bool) {
			log.WithField("online", online).Info("connectivity changed")
		},
	)

	conversation := usecase.NewConversationUsecase(
		usecase.ConversationUsecaseDeps{
			Generator: a.openAI,
			Logger:    log,
		},
	)

	a.chat = usecase.NewChatUsecase(
		usecase.ChatUsecaseDeps{
			Conversation:   conversation,
			User:           a.user,
			SessionStorage: a.sessions,
			Connectivity:   a.watcher,
			Logger:         log,
		},
	)

	if cfg.Speech.Enabled {
		a.speaker = audio.NewEngine(
			audio.EngineDeps{
				Synthesizer: audio.NewCachedSynthesizer(a.openAI, cfg.Generation.SpeechVoice, cfg.Speech.CacheTTL),
				Fallback:    audio.NewCommandFallback(cfg.Speech.FallbackCommand),
				NewGraph:    device.NewGraph,
				Logger:      log,
			},
		)
		a.closers = append(a.closers, a.speaker.Close)
	}

	return a, nil
}

func (a *App) openStorage() error {
	switch a.cfg.Storage.Type {
	case StorageMemory:
		a.sessions = in_memory.NewSessionStorage()
		a.profiles = in_memory.NewProfileStorage()
	case StorageRedis:
		rdb := redis.NewClient(
			&redis.Options{
				Addr:     a.cfg.Storage.Redis.Endpoint,
				Password: a.cfg.Storage.Redis.Password,
				DB:       a.cfg.Storage.Redis.DB,
			},
		)
		a.closers = append(a.closers, rdb.Close)
		a.sessions = key_value.NewSessionStorage(rdb)
		a.profiles = key_value.NewProfileStorage(rdb)
	case StorageSQLite, "":
		db, err := sqlite.Open(a.cfg.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.sessions = sqlite.NewSessionStorage(db)
		a.profiles = sqlite.NewProfileStorage(db)
	default:
		return fmt.Errorf("unknown storage type %q", a.cfg.Storage.Type)
	}
	a.logger.WithField("storage", a.cfg.Storage.Type).Debug("storage opened")
	return nil
}

// Run starts a chat in opts.Mode and serves it through the selected front-end until
// ctx is done or the user quits.
func (a *App) Run(ctx context.Context, opts Options) error {
	go a.watcher.Run(ctx)

	mode := opts.Mode
	if mode == "" {
		mode = model.ChatModeStandard
	}
	if err := a.chat.StartNewChat(ctx, mode); err != nil {
		a.logger.WithError(err).Warn("failed to start chat, continuing without a session")
	}

	switch opts.Frontend {
	case FrontendTerminal, "":
		return a.runTerminal(ctx)
	case FrontendTelegram:
		return a.runTelegram(ctx)
	default:
		return fmt.Errorf("unknown frontend %q", opts.Frontend)
	}
}

func (a *App) runTerminal(ctx context.Context) error {
	deps := usecase.TerminalUsecaseDeps{
		Chat:    a.chat,
		History: a.history,
		User:    a.user,
		Logger:  a.logger,
	}
	if a.speaker != nil {
		deps.Speaker = a.speaker
	}
	historyFile := filepath.Join(filepath.Dir(a.cfg.Storage.SQLite.Path), terminalHistoryFile)
	return usecase.NewTerminalUsecase(deps, os.Stdout, historyFile).Run(ctx)
}

func (a *App) runTelegram(ctx context.Context) error {
	bot, err := api.NewBotAPI(a.cfg.Telegram.TelegramAPIToken)
	if err != nil {
		return fmt.Errorf("failed to create new bot: %w", err)
	}
	a.logger.WithField("account", bot.Self.UserName).Info("authorized on telegram")

	telegramUsecase, err := usecase.NewTelegramUsecase(
		a.cfg.Telegram, usecase.TelegramUsecaseDeps{
			Chat:    a.chat,
			History: a.history,
			Bot:     bot,
			Logger:  a.logger,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create telegram usecase: %w", err)
	}
	return telegramUsecase.Run(ctx)
}

// PrintHistory writes one line per stored session, most recent first.
func (a *App) PrintHistory(ctx context.Context, out io.Writer) error {
	sessions, err := a.history.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No saved chats.")
		return nil
	}
	for i, session := range sessions {
		modified := time.UnixMilli(session.LastModified).Format("2006-01-02 15:04")
		fmt.Fprintf(out, "%2d. %s  [%s]  %s  (%d messages)\n",
			i+1, session.Title, session.Mode, modified, len(session.Messages))
	}
	return nil
}

// Say reads text aloud and returns when playback ends.
func (a *App) Say(ctx context.Context, text string, volume float64) error {
	if a.speaker == nil {
		return fmt.Errorf("speech is disabled")
	}
	a.speaker.SetVolume(volume)
	return a.speaker.Speak(ctx, text)
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

// Close releases the speaker and storage in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("failed to release resource")
		}
	}
	a.closers = nil
}
