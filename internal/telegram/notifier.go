package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"shared-menu/internal/database"
	"shared-menu/internal/dish"
	"shared-menu/internal/events"
	"shared-menu/internal/logger"
	"shared-menu/internal/metrics"
	"shared-menu/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts menu activity to a single Telegram chat.
type Notifier struct {
	api    Sender
	chatID int64
	font   *shopping.Font
}

// NewBotAPI authorizes against the Telegram API.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("Authorized on account %s", bot.Self.UserName)
	return bot, nil
}

// NewNotifier posts to chatID. font draws the shopping list image and may be
// nil for the built-in face.
func NewNotifier(api Sender, chatID int64, font *shopping.Font) *Notifier {
	return &Notifier{api: api, chatID: chatID, font: font}
}

// Watch sends a message whenever a dish becomes wished.
func (n *Notifier) Watch(ctx context.Context, subscriber events.Subscriber) (events.Subscription, error) {
	return subscriber.Subscribe(ctx, "telegram", database.TableDishes, n.handleChange)
}

func (n *Notifier) handleChange(c events.Change) {
	if c.Type != events.Update || len(c.Columns) == 0 || !c.Touches("wished") || len(c.Record) == 0 {
		return
	}

	var d dish.Dish
	if err := json.Unmarshal(c.Record, &d); err != nil {
		logger.Warn("telegram: ignoring undecodable dish change %s: %v", c.RecordID, err)
		return
	}
	if !d.Wished {
		return
	}

	if err := n.sendMarkdown(formatWishMarkdown(d)); err != nil {
		logger.Error("telegram: failed to send wish notification for %s: %v", d.ID, err)
	}
}

// SendShoppingList posts the list as text followed by the rendered image.
func (n *Notifier) SendShoppingList(list *shopping.ShoppingList, dishes []dish.Dish) error {
	if err := n.sendMarkdown(formatShoppingListMarkdown(list, dishes)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := shopping.Render(&buf, list.Content, shopping.RenderOptions{Title: "Shopping list", Font: n.font}); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{Name: list.ID + ".png", Bytes: buf.Bytes()})
	if _, err := n.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send shopping list image: %w", err)
	}
	return nil
}

// SendUsageReport posts the text generation usage and process health.
func (n *Notifier) SendUsageReport(usage []metrics.DailyUsage, health metrics.SysHealth) error {
	return n.sendMarkdown(formatUsageReport(usage, health))
}

func (n *Notifier) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = parseMode
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
