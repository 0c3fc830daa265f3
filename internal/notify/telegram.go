package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/model"
)

// RecipientLookup resolves user ids to users carrying a chat id.
type RecipientLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.User, error)
}

// TelegramDispatcher delivers events to recipients that linked a Telegram chat.
type TelegramDispatcher struct {
	bot    *bot.Bot
	users  RecipientLookup
	logger *zap.Logger
}

func NewTelegramDispatcher(token string, users RecipientLookup, logger *zap.Logger) (*TelegramDispatcher, error) {
	d := &TelegramDispatcher{users: users, logger: logger}
	b, err := bot.New(token, bot.WithDefaultHandler(d.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	d.bot = b
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, d.handleStart)
	return d, nil
}

// Start polls for updates until ctx is done.
func (d *TelegramDispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting telegram relay...")
	if _, err := d.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{{Command: "start", Description: "Show the chat id to link notifications"}},
	}); err != nil {
		d.logger.Warn("Failed to set bot commands", zap.Error(err))
	}
	d.bot.Start(ctx)
}

// handleStart replies with the chat id an administrator stores on the user.
func (d *TelegramDispatcher) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      "Your chat id is <code>" + strconv.FormatInt(chatID, 10) + "</code>. Ask your school administrator to link it to your account.",
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		d.logger.Warn("Failed to answer /start", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (d *TelegramDispatcher) handleDefault(context.Context, *bot.Bot, *models.Update) {}

func (d *TelegramDispatcher) Dispatch(ctx context.Context, ev Event) error {
	users, err := d.users.GetByIDs(ctx, ev.Recipients)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	text := "<b>" + html.EscapeString(ev.Title) + "</b>"
	if ev.Body != "" {
		text += "\n" + html.EscapeString(ev.Body)
	}

	var errs []error
	sent := 0
	for _, u := range users {
		if u.TelegramChatID == nil || !u.IsActive() {
			continue
		}
		_, err := d.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    *u.TelegramChatID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", u.ID, err))
			continue
		}
		sent++
	}

	d.logger.Info("Notification relayed",
		zap.String("type", string(ev.Type)),
		zap.Int("recipients", len(ev.Recipients)),
		zap.Int("sent", sent))
	return errors.Join(errs...)
}
