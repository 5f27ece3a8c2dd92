package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/local"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/markdown"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

const (
	MessageServerError     = "Something wrong with me. Try later"
	MessageUserNoAccess    = "This assistant is private."
	MessageCommandHelp     = "Ask any question about Nigerian law. Use /new to pick a mode, /chats to continue an old chat and /clear to start over. Share your location to find legal aid near you."
	MessageCommandUnknown  = "I don't know that command"
	MessageSelectMode      = "Select a mode to start a new chat"
	MessageSelectedMode    = "Started a new %s chat"
	MessageNoChats         = "You have no saved chats yet."
	MessageChatsHeader     = "Your saved chats. Tap one to continue it."
	MessageRateAnswer      = "Was this answer helpful?"
	MessageFeedbackSaved   = "Thanks for the feedback!"
	MessageChatNotFound    = "That chat no longer exists."
	MessageTurnInProgress  = "Abeg wait, I never finish the last answer."
	MessageFlashcardsTitle = "Flashcards"
	MessageSourcesTitle    = "Sources"

	CommandStart = "start"
	CommandHelp  = "help"
	CommandNew   = "new"
	CommandChats = "chats"
	CommandClear = "clear"

	callbackMode    = "mode"
	callbackResume  = "resume"
	callbackLike    = "like"
	callbackDislike = "dislike"

	telegramMessageLimit = 4096
	// Telegram rate-limits edits of one message well below the documented one per second.
	// https://core.telegram.org/bots/faq#my-bot-is-hitting-limits-how-do-i-avoid-this
	answerEditInterval = 2500 * time.Millisecond
)

type TelegramUsecaseDeps struct {
	Chat    *ChatUsecase
	History *HistoryUsecase
	Bot     *api.BotAPI
	Logger  *logrus.Logger
}

// TelegramUsecase serves the conversation to the owner's Telegram chat.
type TelegramUsecase struct {
	TelegramUsecaseDeps
	cfg config.Telegram
}

func NewTelegramUsecase(cfg config.Telegram, deps TelegramUsecaseDeps) (*TelegramUsecase, error) {
	if cfg.OwnerChatID == 0 {
		return nil, &model.ConfigurationError{Setting: "TELEGRAM_OWNER_CHAT_ID"}
	}
	_, err := deps.Bot.Request(
		api.NewSetMyCommands(
			[]api.BotCommand{
				{
					Command:     CommandHelp,
					Description: "Get help",
				},
				{
					Command:     CommandNew,
					Description: "Pick a mode and start a new chat",
				},
				{
					Command:     CommandChats,
					Description: "Continue a saved chat",
				},
				{
					Command:     CommandClear,
					Description: "Start over in the current mode",
				},
			}...,
		),
	)
	if err != nil {
		return nil, err
	}

	return &TelegramUsecase{
		TelegramUsecaseDeps: deps,
		cfg:                 cfg,
	}, nil
}

func (t *TelegramUsecase) Run(ctx context.Context) error {
	u := api.NewUpdate(0)
	u.Timeout = 60

	updates := t.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				if err := t.handleMessage(ctx, update); err != nil {
					t.Logger.WithError(err).Error("error handling message")
				}
			}
			if update.CallbackQuery != nil {
				if err := t.handleCallbackQuery(ctx, update); err != nil {
					t.Logger.WithError(err).Error("error handling callback query")
				}
			}
		}
	}
}

func (t *TelegramUsecase) allowed(chatID int64) bool {
	return t.cfg.OwnerChatID != 0 && t.cfg.OwnerChatID == chatID
}

func (t *TelegramUsecase) handleCallbackQuery(ctx context.Context, update api.Update) error {
	chatID := update.CallbackQuery.Message.Chat.ID
	callbackQueryID := update.CallbackQuery.ID
	data := update.CallbackQuery.Data
	callback := api.NewCallback(callbackQueryID, "")
	if _, err := t.Bot.Request(callback); err != nil {
		return fmt.Errorf("failed to request callback: %w", err)
	}
	if !t.allowed(chatID) {
		t.sendMessageAndHandleErr(chatID, MessageUserNoAccess)
		return nil
	}

	kind, value, _ := strings.Cut(data, ":")
	switch kind {
	case callbackMode:
		mode, err := model.ParseChatMode(value)
		if err != nil {
			return err
		}
		if err = t.Chat.StartNewChat(ctx, mode); err != nil {
			t.sendMessageAndHandleErr(chatID, MessageServerError)
			return fmt.Errorf("failed to start chat: %w", err)
		}
		t.sendMessageAndHandleErr(chatID, fmt.Sprintf(MessageSelectedMode, mode.Config().Label))
		t.sendGreeting(chatID)
	case callbackResume:
		session, err := t.History.GetSession(ctx, value)
		if err != nil {
			if errors.Is(err, model.ErrSessionNotFound) {
				t.sendMessageAndHandleErr(chatID, MessageChatNotFound)
				return nil
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if err = t.Chat.ResumeChat(ctx, session); err != nil {
			t.sendMessageAndHandleErr(chatID, MessageServerError)
			return fmt.Errorf("failed to resume chat: %w", err)
		}
		t.sendMessageAndHandleErr(chatID, prepareTranscript(session))
	case callbackLike, callbackDislike:
		feedback, _ := model.ParseFeedback(kind)
		if err := t.Chat.SetFeedback(ctx, value, feedback); err != nil {
			return fmt.Errorf("failed to set feedback: %w", err)
		}
		t.sendMessageAndHandleErr(chatID, MessageFeedbackSaved)
	default:
		return fmt.Errorf("unknown callback %q", data)
	}
	return nil
}

func (t *TelegramUsecase) handleMessage(ctx context.Context, update api.Update) error {
	chatID := update.Message.Chat.ID

	if !t.allowed(chatID) {
		t.sendMessageAndHandleErr(chatID, MessageUserNoAccess)
		return nil
	}

	if update.Message.IsCommand() {
		switch update.Message.Command() {
		case CommandStart:
			if err := t.Chat.StartNewChat(ctx, t.Chat.State().Mode); err != nil {
				t.sendMessageAndHandleErr(chatID, MessageServerError)
				return fmt.Errorf("failed to start chat: %w", err)
			}
			t.sendGreeting(chatID)
		case CommandHelp:
			t.sendMessageAndHandleErr(chatID, MessageCommandHelp)
		case CommandNew:
			if err := t.sendSelectModeKeyboard(chatID); err != nil {
				return fmt.Errorf("failed to send select mode keyboard: %w", err)
			}
		case CommandChats:
			if err := t.sendChatsKeyboard(ctx, chatID); err != nil {
				return fmt.Errorf("failed to send chats keyboard: %w", err)
			}
		case CommandClear:
			if err := t.Chat.ClearHistory(ctx); err != nil {
				t.sendMessageAndHandleErr(chatID, MessageServerError)
				return fmt.Errorf("failed to clear chat: %w", err)
			}
			t.sendGreeting(chatID)
		default:
			t.sendMessageAndHandleErr(chatID, MessageCommandUnknown)
		}
		return nil
	}

	if t.Chat.State().SessionID == "" {
		if err := t.Chat.StartNewChat(ctx, model.ChatModeStandard); err != nil {
			t.sendMessageAndHandleErr(chatID, MessageServerError)
			return fmt.Errorf("failed to start chat: %w", err)
		}
	}

	if location := update.Message.Location; location != nil {
		return t.streamAnswer(
			chatID, func() error {
				return t.Chat.ShareLocation(ctx, location.Latitude, location.Longitude)
			},
		)
	}
	msgText := update.Message.Text
	if strings.TrimSpace(msgText) == "" {
		return nil
	}
	return t.streamAnswer(
		chatID, func() error {
			return t.Chat.SendMessage(ctx, msgText, nil)
		},
	)
}

// streamAnswer runs send and mirrors the growing reply into one Telegram message,
// editing it at most once per answerEditInterval.
func (t *TelegramUsecase) streamAnswer(chatID int64, send func() error) error {
	before := len(t.Chat.State().Messages)
	updates, unsubscribe := t.Chat.Subscribe()
	limiter := rate.NewLimiter(rate.Every(answerEditInterval), 1)

	var sendErr error
	var answerMsgID int
	wg := conc.NewWaitGroup()
	wg.Go(
		func() {
			defer unsubscribe()
			sendErr = send()
		},
	)
	wg.Go(
		func() {
			if _, err := t.Bot.Request(api.NewChatAction(chatID, api.ChatTyping)); err != nil {
				t.Logger.WithError(err).Warn("failed to send chat action")
			}
			var lastSent string
			for state := range updates {
				reply, ok := replyAfter(state, before)
				if !ok || reply.Text == "" || reply.Text == lastSent || !limiter.Allow() {
					continue
				}
				answerMsgID = t.upsertAnswer(chatID, answerMsgID, truncateRunes(reply.Text, telegramMessageLimit), "")
				lastSent = reply.Text
			}
		},
	)
	wg.Wait()

	switch {
	case errors.Is(sendErr, model.ErrOffline):
		language := local.Language(t.Chat.State().Language)
		t.sendMessageAndHandleErr(chatID, local.Offline.Text(language))
		return nil
	case errors.Is(sendErr, model.ErrTurnInProgress):
		t.sendMessageAndHandleErr(chatID, MessageTurnInProgress)
		return nil
	}

	reply, ok := replyAfter(t.Chat.State(), before)
	if !ok {
		return sendErr
	}
	rendered := renderTelegramAnswer(reply)
	if utf8.RuneCountInString(rendered) > telegramMessageLimit {
		t.upsertAnswer(chatID, answerMsgID, truncateRunes(reply.Text, telegramMessageLimit), "")
	} else {
		t.upsertAnswer(chatID, answerMsgID, rendered, "HTML")
	}
	if !reply.IsError {
		if err := t.sendRateKeyboard(chatID, reply.ID); err != nil {
			t.Logger.WithError(err).Warn("failed to send rate keyboard")
		}
	}
	return sendErr
}

func (t *TelegramUsecase) upsertAnswer(chatID int64, answerMsgID int, text, parseMode string) int {
	if answerMsgID == 0 {
		msg := api.NewMessage(chatID, text)
		msg.ParseMode = parseMode
		answerMsg, err := t.sendToBot(msg)
		if err != nil {
			t.Logger.WithError(err).Warn("failed to send answer")
			return 0
		}
		return answerMsg.MessageID
	}
	edit := api.NewEditMessageText(chatID, answerMsgID, text)
	edit.ParseMode = parseMode
	if _, err := t.sendToBot(edit); err != nil {
		t.Logger.WithError(err).Debug("failed to edit answer")
	}
	return answerMsgID
}

func (t *TelegramUsecase) sendGreeting(chatID int64) {
	state := t.Chat.State()
	if len(state.Messages) == 0 {
		return
	}
	t.sendMessageAndHandleErr(chatID, state.Messages[0].Text)
}

func (t *TelegramUsecase) sendSelectModeKeyboard(chatID int64) error {
	msg := api.NewMessage(chatID, MessageSelectMode)
	inlineRows := make([][]api.InlineKeyboardButton, 0, len(model.ChatModes))
	for _, mode := range model.ChatModes {
		inlineRows = append(
			inlineRows,
			[]api.InlineKeyboardButton{
				api.NewInlineKeyboardButtonData(mode.Config().Label, callbackMode+":"+string(mode)),
			},
		)
	}
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(inlineRows...)
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to bot: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) sendChatsKeyboard(ctx context.Context, chatID int64) error {
	sessions, err := t.History.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		t.sendMessageAndHandleErr(chatID, MessageNoChats)
		return nil
	}
	msg := api.NewMessage(chatID, MessageChatsHeader)
	inlineRows := make([][]api.InlineKeyboardButton, 0, len(sessions))
	for _, session := range sessions {
		label := fmt.Sprintf("%s · %s", session.Title, session.Mode.Config().Label)
		inlineRows = append(
			inlineRows,
			[]api.InlineKeyboardButton{api.NewInlineKeyboardButtonData(label, callbackResume+":"+session.ID)},
		)
	}
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(inlineRows...)
	if _, err = t.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to bot: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) sendRateKeyboard(chatID int64, messageID string) error {
	msg := api.NewMessage(chatID, MessageRateAnswer)
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		[]api.InlineKeyboardButton{
			api.NewInlineKeyboardButtonData("👍", callbackLike+":"+messageID),
			api.NewInlineKeyboardButtonData("👎", callbackDislike+":"+messageID),
		},
	)
	_, err := t.Bot.Send(msg)
	return err
}

func (t *TelegramUsecase) sendMessageAndHandleErr(chatID int64, message string) api.Message {
	msg, err := t.sendMessage(chatID, message)
	if err != nil {
		t.Logger.WithError(err).Warn("failed to send new message to bot")
	}
	return msg
}

func (t *TelegramUsecase) sendMessage(chatID int64, message string) (api.Message, error) {
	return t.sendToBot(api.NewMessage(chatID, truncateRunes(message, telegramMessageLimit)))
}

func (t *TelegramUsecase) sendToBot(c api.Chattable) (api.Message, error) {
	return t.Bot.Send(c)
}

func replyAfter(state ChatState, before int) (model.Message, bool) {
	if len(state.Messages) < before+2 {
		return model.Message{}, false
	}
	reply := state.Messages[before+1]
	if reply.Sender != model.SenderModel {
		return model.Message{}, false
	}
	return reply, true
}

// renderTelegramAnswer formats a finished reply as Telegram HTML with its flashcards
// and sources.
func renderTelegramAnswer(reply model.Message) string {
	display, cards := model.ExtractFlashcards(reply.Text)
	result := strings.Builder{}
	result.WriteString(markdown.ToTelegramHTML(display))
	if len(cards) > 0 {
		result.WriteString(fmt.Sprintf("\n\n<b>%s</b>\n", MessageFlashcardsTitle))
		for _, card := range cards {
			result.WriteString(
				fmt.Sprintf("• <b>%s</b>: %s\n", html.EscapeString(card.Front), html.EscapeString(card.Back)),
			)
		}
	}
	if sources := reply.GroundingMetadata.Sources(); len(sources) > 0 {
		result.WriteString(fmt.Sprintf("\n\n<b>%s</b>\n", MessageSourcesTitle))
		for i, source := range sources {
			result.WriteString(
				fmt.Sprintf(
					"%d. <a href=\"%s\">%s</a>\n", i+1, html.EscapeString(source.URI), html.EscapeString(source.Title),
				),
			)
		}
	}
	return strings.TrimSpace(result.String())
}

func prepareTranscript(session model.ChatSession) string {
	result := strings.Builder{}
	result.WriteString(fmt.Sprintf("%s (%s)\n", session.Title, session.Mode.Config().Label))
	for _, msg := range session.Messages {
		display, _ := model.ExtractFlashcards(msg.Text)
		result.WriteString(fmt.Sprintf("\n[%s] %s\n", msg.Sender, display))
	}
	return result.String()
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit-1]) + "…"
}
