package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iamvkosarev/legal-ai-assistant/internal/audio"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/local"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

var errQuit = errors.New("quit")

const terminalHelp = `Commands:
  /new [mode]            start a new chat (modes: standard, deep_think, research, guided_learning)
  /mode <mode>           switch mode, starting a new chat when it changes
  /history               list saved chats
  /resume <n|id>         continue a saved chat
  /delete <n|id>         delete a saved chat
  /clear                 start over in the current mode
  /clearall              delete every saved chat
  /profile [field value] show or change language, dialect or location
  /attach <path>         attach a file to the next message
  /locate <lat> <lon>    find legal aid near a location
  /like, /dislike        rate the last answer
  /speak [n]             read the last (or n-th) answer aloud
  /stop                  stop reading
  /volume <0-100>        set reading volume
  /quit                  exit`

// Speaker reads replies aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
	SetVolume(v float64)
	Volume() float64
	Subscribe() <-chan audio.Event
}

type TerminalUsecaseDeps struct {
	Chat    *ChatUsecase
	History *HistoryUsecase
	User    *UserUsecase
	// Speaker is nil when speech is disabled.
	Speaker Speaker
	Logger  *logrus.Logger
}

// TerminalUsecase is an interactive console front-end.
type TerminalUsecase struct {
	TerminalUsecaseDeps
	out         io.Writer
	renderer    *glamour.TermRenderer
	historyFile string
	pending     []model.Attachment
}

func NewTerminalUsecase(deps TerminalUsecaseDeps, out io.Writer, historyFile string) *TerminalUsecase {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(90),
	)
	if err != nil {
		deps.Logger.WithError(err).Warn("markdown renderer unavailable, printing plain text")
		renderer = nil
	}
	return &TerminalUsecase{
		TerminalUsecaseDeps: deps,
		out:                 out,
		renderer:            renderer,
		historyFile:         historyFile,
	}
}

func (t *TerminalUsecase) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	t.loadHistory(line)
	defer t.saveHistory(line)

	if t.Speaker != nil {
		go t.watchSpeech(ctx)
	}

	if t.Chat.State().SessionID == "" {
		if err := t.Chat.StartNewChat(ctx, t.Chat.State().Mode); err != nil {
			t.printError(err)
		}
	}
	t.printGreeting()
	fmt.Fprintln(t.out, dimStyle.Render("Type /help for commands."))

	for {
		if ctx.Err() != nil {
			return nil
		}
		state := t.Chat.State()
		input, err := line.Prompt(promptStyle.Render(fmt.Sprintf("%s> ", state.Mode)))
		if err != nil {
			fmt.Fprintln(t.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if err = t.handleCommand(ctx, input); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				t.printError(err)
			}
			continue
		}
		if err = t.send(ctx, input); err != nil {
			t.printError(err)
		}
	}
}

func (t *TerminalUsecase) handleCommand(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	command, args := strings.TrimPrefix(fields[0], "/"), fields[1:]

	switch command {
	case "help":
		fmt.Fprintln(t.out, terminalHelp)
	case "quit", "exit":
		if t.Speaker != nil {
			t.Speaker.Stop()
		}
		return errQuit
	case "new":
		mode := t.Chat.State().Mode
		if len(args) > 0 {
			parsed, err := model.ParseChatMode(args[0])
			if err != nil {
				return err
			}
			mode = parsed
		}
		if err := t.Chat.StartNewChat(ctx, mode); err != nil {
			return err
		}
		t.printGreeting()
	case "mode":
		if len(args) == 0 {
			for _, mode := range model.ChatModes {
				cfg := mode.Config()
				fmt.Fprintf(t.out, "  %-16s %s: %s\n", mode, cfg.Label, cfg.Description)
			}
			return nil
		}
		mode, err := model.ParseChatMode(args[0])
		if err != nil {
			return err
		}
		previous := t.Chat.State().SessionID
		if err = t.Chat.SwitchMode(ctx, mode); err != nil {
			return err
		}
		if t.Chat.State().SessionID != previous {
			t.printGreeting()
		}
	case "history":
		return t.printHistory(ctx)
	case "resume":
		session, err := t.pickSession(ctx, args)
		if err != nil {
			return err
		}
		if err = t.Chat.ResumeChat(ctx, session); err != nil {
			return err
		}
		fmt.Fprintln(t.out, titleStyle.Render(session.Title))
		for _, msg := range session.Messages {
			t.printMessage(msg)
		}
	case "delete":
		session, err := t.pickSession(ctx, args)
		if err != nil {
			return err
		}
		if err = t.History.DeleteSession(ctx, session.ID); err != nil {
			return err
		}
		fmt.Fprintln(t.out, dimStyle.Render("Deleted "+session.Title))
	case "clear":
		if err := t.Chat.ClearHistory(ctx); err != nil {
			return err
		}
		t.printGreeting()
	case "clearall":
		if err := t.History.ClearSessions(ctx); err != nil {
			return err
		}
		fmt.Fprintln(t.out, dimStyle.Render("All saved chats deleted."))
	case "profile":
		return t.handleProfile(ctx, args)
	case "attach":
		if len(args) == 0 {
			return errors.New("usage: /attach <path>")
		}
		attachment, err := readAttachment(strings.Join(args, " "))
		if err != nil {
			return err
		}
		t.pending = append(t.pending, attachment)
		fmt.Fprintln(t.out, dimStyle.Render(fmt.Sprintf("Attached %s (%s)", attachment.Name, attachment.MIMEType)))
	case "locate":
		if len(args) != 2 {
			return errors.New("usage: /locate <lat> <lon>")
		}
		latitude, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude: %w", err)
		}
		longitude, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude: %w", err)
		}
		return t.stream(
			ctx, func() error {
				return t.Chat.ShareLocation(ctx, latitude, longitude)
			},
		)
	case "like", "dislike":
		feedback, _ := model.ParseFeedback(command)
		reply, err := t.pickReply(args)
		if err != nil {
			return err
		}
		return t.Chat.SetFeedback(ctx, reply.ID, feedback)
	case "speak":
		if t.Speaker == nil {
			return errors.New("speech is disabled")
		}
		reply, err := t.pickReply(args)
		if err != nil {
			return err
		}
		go func() {
			if err := t.Speaker.Speak(ctx, reply.Text); err != nil {
				t.Logger.WithError(err).Warn("failed to read answer aloud")
			}
		}()
	case "stop":
		if t.Speaker != nil {
			t.Speaker.Stop()
		}
	case "volume":
		if t.Speaker == nil {
			return errors.New("speech is disabled")
		}
		if len(args) == 0 {
			fmt.Fprintf(t.out, "Volume: %.0f\n", t.Speaker.Volume()*100)
			return nil
		}
		percent, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume: %w", err)
		}
		t.Speaker.SetVolume(percent / 100)
	default:
		return fmt.Errorf("unknown command /%s", command)
	}
	return nil
}

func (t *TerminalUsecase) handleProfile(ctx context.Context, args []string) error {
	profile := t.User.GetProfile(ctx)
	if len(args) >= 2 {
		value := strings.Join(args[1:], " ")
		switch args[0] {
		case "language":
			language, ok := model.ParseLanguage(value)
			if !ok {
				return fmt.Errorf("unknown language %q", value)
			}
			profile.Language = language
		case "dialect":
			dialect, ok := model.ParseDialect(strings.ToUpper(value))
			if !ok {
				return fmt.Errorf("unknown dialect %q", value)
			}
			profile.Dialect = dialect
		case "location":
			profile.Location = value
		default:
			return fmt.Errorf("unknown profile field %q", args[0])
		}
		var err error
		if profile, err = t.User.UpdateProfile(ctx, profile); err != nil {
			return err
		}
		fmt.Fprintln(t.out, dimStyle.Render("Profile saved. It applies to new chats."))
	}
	location := profile.Location
	if location == "" {
		location = "not set"
	}
	fmt.Fprintf(
		t.out, "Language: %s\nDialect:  %s\nLocation: %s\n", profile.Language, profile.Dialect, location,
	)
	return nil
}

func (t *TerminalUsecase) send(ctx context.Context, text string) error {
	attachments := t.pending
	err := t.stream(
		ctx, func() error {
			return t.Chat.SendMessage(ctx, text, attachments)
		},
	)
	if !errors.Is(err, model.ErrOffline) && !errors.Is(err, model.ErrTurnInProgress) {
		t.pending = nil
	}
	return err
}

// stream runs send while showing reply progress, then prints the finished reply.
func (t *TerminalUsecase) stream(ctx context.Context, send func() error) error {
	before := len(t.Chat.State().Messages)
	updates, unsubscribe := t.Chat.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for state := range updates {
			if reply, ok := replyAfter(state, before); ok && state.Loading {
				fmt.Fprintf(t.out, "\r%s", dimStyle.Render(fmt.Sprintf("thinking… %d chars", len(reply.Text))))
			}
		}
	}()

	err := send()
	unsubscribe()
	<-done
	fmt.Fprint(t.out, "\r\033[K")

	if errors.Is(err, model.ErrOffline) {
		fmt.Fprintln(t.out, errorStyle.Render(local.Offline.Text(local.Language(t.Chat.State().Language))))
		return nil
	}
	if reply, ok := replyAfter(t.Chat.State(), before); ok {
		t.printMessage(reply)
	}
	var cfgErr *model.ConfigurationError
	if errors.As(err, &cfgErr) {
		t.printError(cfgErr)
	}
	if errors.Is(err, model.ErrTurnInProgress) {
		return err
	}
	return nil
}

func (t *TerminalUsecase) printGreeting() {
	state := t.Chat.State()
	fmt.Fprintln(t.out, titleStyle.Render(state.Mode.Config().Label))
	if len(state.Messages) > 0 {
		t.printMessage(state.Messages[0])
	}
}

func (t *TerminalUsecase) printMessage(msg model.Message) {
	if msg.Sender == model.SenderUser {
		text := msg.Text
		for _, att := range msg.Attachments {
			text += dimStyle.Render(fmt.Sprintf(" [%s %s]", att.Type, att.Name))
		}
		fmt.Fprintf(t.out, "%s %s\n", userStyle.Render("You:"), text)
		return
	}
	if msg.IsError {
		fmt.Fprintln(t.out, errorStyle.Render(msg.Text))
		return
	}
	display, cards := model.ExtractFlashcards(msg.Text)
	fmt.Fprint(t.out, t.renderMarkdown(display))
	if len(cards) > 0 {
		fmt.Fprintln(t.out, titleStyle.Render("Flashcards"))
		for i, card := range cards {
			fmt.Fprintf(t.out, "  %d. %s\n     %s\n", i+1, card.Front, dimStyle.Render(card.Back))
		}
	}
	if sources := msg.GroundingMetadata.Sources(); len(sources) > 0 {
		fmt.Fprintln(t.out, titleStyle.Render("Sources"))
		for i, source := range sources {
			fmt.Fprintf(t.out, "  %d. %s %s\n", i+1, source.Title, dimStyle.Render(source.URI))
		}
	}
}

func (t *TerminalUsecase) renderMarkdown(content string) string {
	if t.renderer == nil {
		return content + "\n"
	}
	rendered, err := t.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}

func (t *TerminalUsecase) printHistory(ctx context.Context) error {
	sessions, err := t.History.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(t.out, dimStyle.Render("No saved chats yet."))
		return nil
	}
	for i, session := range sessions {
		modified := time.UnixMilli(session.LastModified).Format("02 Jan 15:04")
		fmt.Fprintf(
			t.out, "  %2d. %-44s %s %s\n", i+1, session.Title, session.Mode.Config().Label, dimStyle.Render(modified),
		)
	}
	return nil
}

func (t *TerminalUsecase) pickSession(ctx context.Context, args []string) (model.ChatSession, error) {
	if len(args) == 0 {
		return model.ChatSession{}, errors.New("pick a chat by number or id, see /history")
	}
	if n, err := strconv.Atoi(args[0]); err == nil {
		sessions, err := t.History.ListSessions(ctx)
		if err != nil {
			return model.ChatSession{}, err
		}
		if n < 1 || n > len(sessions) {
			return model.ChatSession{}, model.ErrSessionNotFound
		}
		return sessions[n-1], nil
	}
	return t.History.GetSession(ctx, args[0])
}

// pickReply returns the n-th assistant reply of the chat, counting from 1, or the last
// one when no number is given.
func (t *TerminalUsecase) pickReply(args []string) (model.Message, error) {
	replies := make([]model.Message, 0)
	for _, msg := range t.Chat.State().Messages {
		if msg.Sender == model.SenderModel && !msg.IsError && msg.Text != "" {
			replies = append(replies, msg)
		}
	}
	if len(replies) == 0 {
		return model.Message{}, model.ErrMessageNotFound
	}
	if len(args) == 0 {
		return replies[len(replies)-1], nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(replies) {
		return model.Message{}, model.ErrMessageNotFound
	}
	return replies[n-1], nil
}

func (t *TerminalUsecase) watchSpeech(ctx context.Context) {
	events := t.Speaker.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			t.Logger.WithField("event", event.String()).Debug("speech playback")
		}
	}
}

func (t *TerminalUsecase) printError(err error) {
	fmt.Fprintf(t.out, "%s %v\n", errorStyle.Render("[Error]"), err)
}

func (t *TerminalUsecase) loadHistory(line *liner.State) {
	if t.historyFile == "" {
		return
	}
	if f, err := os.Open(t.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
}

func (t *TerminalUsecase) saveHistory(line *liner.State) {
	if t.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

func readAttachment(path string) (model.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return model.Attachment{
		Type:     model.AttachmentTypeForMIME(mimeType),
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
		Name:     filepath.Base(path),
	}, nil
}
