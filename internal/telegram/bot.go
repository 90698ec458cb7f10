// Package telegram is the long-polling chat adapter. Each text message is
// handed to the assistant and its reply is sent back to the same chat.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-expense-assistant/internal/config"
	"github.com/tbourn/go-expense-assistant/internal/services"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// Assistant answers one message. *services.Assistant satisfies it.
type Assistant interface {
	Handle(ctx context.Context, userID, text string) (services.Reply, error)
	Welcome() string
}

// Bot polls Telegram and dispatches messages to a bounded worker pool.
type Bot struct {
	api         API
	assistant   Assistant
	pollTimeout int
	workers     int
}

// Dial authenticates against the Bot API with token.
func Dial(token string) (*tgbotapi.BotAPI, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram: empty bot token")
	}
	return tgbotapi.NewBotAPI(token)
}

// New builds a Bot. Workers below one are raised to one.
func New(api API, assistant Assistant, cfg config.TelegramConfig) *Bot {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Bot{api: api, assistant: assistant, pollTimeout: cfg.PollTimeout, workers: workers}
}

// Run polls until ctx is cancelled or the update channel closes, then waits
// for in-flight messages to finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	var g errgroup.Group
	g.SetLimit(b.workers)

	log.Info().Int("workers", b.workers).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			log.Info().Msg("telegram polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			if upd.Message == nil {
				continue
			}
			msg := upd.Message
			g.Go(func() error {
				b.handle(ctx, msg)
				return nil
			})
		}
	}
}

// handle answers a single message. Failures are logged, never returned, so
// one bad message cannot stop the pool.
func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	uid := strconv.FormatInt(msg.From.ID, 10)
	lg := log.With().Str("user_id", uid).Int64("chat_id", msg.Chat.ID).Logger()

	var text string
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		text = b.assistant.Welcome()
	case strings.TrimSpace(msg.Text) == "":
		return
	default:
		reply, err := b.assistant.Handle(lg.WithContext(ctx), uid, msg.Text)
		if err != nil {
			// Input errors only; the user gets the generic apology.
			lg.Warn().Err(err).Msg("message rejected")
			text = services.TextApology
		} else {
			text = reply.Text
		}
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		lg.Error().Err(err).Msg("telegram send failed")
	}
}
