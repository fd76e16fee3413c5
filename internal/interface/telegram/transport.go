// Package telegram adapts the Telegram Bot API to the core's event and
// messenger contracts. The core never sees Telegram types.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/pkg/logger"
)

// Transport implements the Messenger interface over Telegram and turns
// Telegram updates into core events.
type Transport struct {
	api    *tgbotapi.BotAPI
	logger logger.Logger
}

// New creates a new Telegram transport
func New(token string, logger logger.Logger) (*Transport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Telegram bot authorized", "username", api.Self.UserName)

	return &Transport{
		api:    api,
		logger: logger,
	}, nil
}

func chatID(actorID string) (int64, error) {
	return strconv.ParseInt(actorID, 10, 64)
}

// SendText sends a plain text message
func (t *Transport) SendText(ctx context.Context, actorID, text string) error {
	id, err := chatID(actorID)
	if err != nil {
		return fmt.Errorf("bad actor id %q: %w", actorID, err)
	}
	_, err = t.api.Send(tgbotapi.NewMessage(id, text))
	return err
}

// SendPhoto sends a photo by its Telegram file id
func (t *Transport) SendPhoto(ctx context.Context, actorID, photoRef, caption string) error {
	id, err := chatID(actorID)
	if err != nil {
		return fmt.Errorf("bad actor id %q: %w", actorID, err)
	}
	photo := tgbotapi.NewPhoto(id, tgbotapi.FileID(photoRef))
	photo.Caption = caption
	_, err = t.api.Send(photo)
	return err
}

// SendWithActions sends text with an inline keyboard, one action per row.
// Action tokens travel as callback data and come back verbatim.
func (t *Transport) SendWithActions(ctx context.Context, actorID, text string, actions []entity.Action) error {
	id, err := chatID(actorID)
	if err != nil {
		return fmt.Errorf("bad actor id %q: %w", actorID, err)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, action := range actions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(action.Label, action.Token)))
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = t.api.Send(msg)
	return err
}

// Run consumes the Telegram long-poll update stream, converting each
// update into a core event, until the context is cancelled.
func (t *Transport) Run(ctx context.Context, handle func(context.Context, entity.Event)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if ev, ok := t.toEvent(update); ok {
				handle(ctx, ev)
			}
		}
	}
}

func (t *Transport) toEvent(update tgbotapi.Update) (entity.Event, bool) {
	if q := update.CallbackQuery; q != nil {
		// acknowledge the press so the client stops its spinner; the
		// token may still be redelivered, handlers are idempotent-safe
		if _, err := t.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			t.logger.Warn("Callback ack failed", "error", err)
		}
		return entity.Event{
			ActorID: strconv.FormatInt(q.Message.Chat.ID, 10),
			Kind:    entity.EventButton,
			Token:   q.Data,
		}, true
	}

	msg := update.Message
	if msg == nil {
		return entity.Event{}, false
	}
	actorID := strconv.FormatInt(msg.Chat.ID, 10)

	if len(msg.Photo) > 0 {
		// largest size last
		return entity.Event{
			ActorID:  actorID,
			Kind:     entity.EventPhoto,
			PhotoRef: msg.Photo[len(msg.Photo)-1].FileID,
			Text:     msg.Caption,
		}, true
	}

	if msg.Text != "" {
		return entity.Event{
			ActorID: actorID,
			Kind:    entity.EventText,
			Text:    msg.Text,
		}, true
	}

	return entity.Event{}, false
}
