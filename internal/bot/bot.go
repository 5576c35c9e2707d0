// ABOUTME: Telegram transport wiring for idgate using telebot long polling
// ABOUTME: Registers the access-gate middleware, command handlers, and keyboard

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/arbatlabs/idgate/internal/access"
	"github.com/arbatlabs/idgate/internal/metrics"
)

// commands is the menu registered with Telegram at startup.
var commands = []tele.Command{
	{Text: "start", Description: "Start the bot"},
	{Text: "help", Description: "Help"},
	{Text: "id", Description: "Show your ID and the chat ID"},
	{Text: "add", Description: "Add a user to the whitelist"},
	{Text: "remove", Description: "Remove a user from the whitelist"},
	{Text: "list", Description: "Show the whitelist"},
	{Text: "check", Description: "Check your access"},
	{Text: "find_phone", Description: "Find directory entries by phone number"},
}

// Bot connects the command logic to the Telegram Bot API.
type Bot struct {
	tb       *tele.Bot
	gate     *access.Gate
	handlers *Handlers
	recorder metrics.Recorder
	logger   *slog.Logger

	// ctx is the lifetime of the polling loop, set by Start. Handlers
	// use it for store calls so shutdown cancels in-flight work.
	ctx context.Context
}

// New creates the bot and registers all routes. recorder may be nil.
func New(token string, gate *access.Gate, handlers *Handlers, recorder metrics.Recorder) (*Bot, error) {
	tb, err := tele.NewBot(tele.Settings{
		Token:     token,
		ParseMode: tele.ModeHTML,
		Poller:    &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	b := &Bot{
		tb:       tb,
		gate:     gate,
		handlers: handlers,
		recorder: recorder,
		logger:   slog.Default().With("component", "bot"),
		ctx:      context.Background(),
	}
	b.routes()
	return b, nil
}

// Start registers the command menu and runs long polling until ctx is
// cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	if err := b.tb.SetCommands(commands); err != nil {
		b.logger.Warn("setting bot commands failed", "error", err)
	}

	go func() {
		<-ctx.Done()
		b.logger.Info("stopping bot")
		b.tb.Stop()
	}()

	b.logger.Info("bot started", "username", b.tb.Me.Username)
	b.tb.Start()
	return nil
}

func (b *Bot) routes() {
	b.tb.Use(b.gateMiddleware)

	menu := replyKeyboard()

	b.tb.Handle("/start", func(c tele.Context) error {
		return c.Send(startText(senderFullName(c.Sender())), menu)
	})
	b.tb.Handle("/help", func(c tele.Context) error {
		return c.Send(helpText(), menu)
	})
	b.tb.Handle(&btnHelp, func(c tele.Context) error {
		return c.Send(helpText(), menu)
	})

	idHandler := func(c tele.Context) error {
		return c.Send(idText(c.Sender().ID, c.Chat().ID, string(c.Chat().Type)), menu)
	}
	b.tb.Handle("/id", idHandler)
	b.tb.Handle(&btnMyID, idHandler)

	b.tb.Handle("/add", func(c tele.Context) error {
		return c.Send(b.handlers.AddUser(b.ctx, c.Message().Payload))
	})
	b.tb.Handle("/remove", func(c tele.Context) error {
		return c.Send(b.handlers.RemoveUser(b.ctx, c.Sender().ID, c.Message().Payload))
	})
	b.tb.Handle("/list", func(c tele.Context) error {
		return c.Send(b.handlers.ListWhitelist(b.ctx))
	})
	b.tb.Handle("/check", func(c tele.Context) error {
		return c.Send(b.handlers.CheckAccess(b.ctx, c.Sender().ID))
	})

	b.tb.Handle("/add_person", func(c tele.Context) error {
		return c.Send(b.handlers.AddPerson(b.ctx, c.Message().Payload))
	})
	b.tb.Handle("/add_account", func(c tele.Context) error {
		return c.Send(b.handlers.AddAccount(b.ctx, c.Message().Payload))
	})
	b.tb.Handle("/find_phone", func(c tele.Context) error {
		return c.Send(b.handlers.FindPhone(b.ctx, c.Message().Payload))
	})
	b.tb.Handle("/list_persons", func(c tele.Context) error {
		return c.Send(b.handlers.ListPersons(b.ctx))
	})
	b.tb.Handle("/list_accounts", func(c tele.Context) error {
		return c.Send(b.handlers.ListAccounts(b.ctx))
	})
	b.tb.Handle("/delete_person", func(c tele.Context) error {
		return c.Send(b.handlers.DeletePerson(b.ctx, c.Message().Payload))
	})
	b.tb.Handle("/delete_account", func(c tele.Context) error {
		return c.Send(b.handlers.DeleteAccount(b.ctx, c.Message().Payload))
	})

	// Forwarded messages report the origin's IDs; any other text gets
	// the usage hint.
	b.tb.Handle(tele.OnText, func(c tele.Context) error {
		if text, ok := forwardOriginText(c.Message()); ok {
			return c.Send(text, menu)
		}
		if strings.HasPrefix(c.Message().Text, "/") {
			return nil // unknown command, stay quiet
		}
		return c.Send(hintText(), menu)
	})
}

// gateMiddleware drops every update whose sender fails the access gate.
// Denied updates get no reply at all.
func (b *Bot) gateMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		if !b.gate.Check(b.ctx, sender.ID) {
			return nil
		}
		if b.recorder != nil {
			b.recorder.RecordUpdate(commandOf(c))
		}
		return next(c)
	}
}

// commandOf labels an update for metrics: the command word for commands,
// "text" for everything else.
func commandOf(c tele.Context) string {
	msg := c.Message()
	if msg == nil {
		return "other"
	}
	if strings.HasPrefix(msg.Text, "/") {
		cmd := strings.Fields(msg.Text)[0]
		// Strip the @botname suffix used in groups
		if i := strings.Index(cmd, "@"); i > 0 {
			cmd = cmd[:i]
		}
		return strings.TrimPrefix(cmd, "/")
	}
	return "text"
}

func senderFullName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
