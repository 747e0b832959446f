// Package telegram implements catalog.ChannelPublisher against the Telegram
// Bot API over plain HTTP.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

// Config controls the Bot API client.
type Config struct {
	Token   string
	ChatID  string
	BaseURL string
	Timeout time.Duration
}

// Publisher talks to the Telegram Bot API. The target chat is fixed at
// construction.
type Publisher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Publisher.
func New(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
}

type update struct {
	UpdateID    int64    `json:"update_id"`
	ChannelPost *message `json:"channel_post"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

func actionMarkup(action *catalog.Action) *inlineKeyboard {
	if action == nil {
		return nil
	}
	return &inlineKeyboard{
		InlineKeyboard: [][]inlineButton{{{
			Text:         action.Label,
			CallbackData: "order_" + action.Token,
		}}},
	}
}

// SendText posts a plain text message, optionally with an order button.
func (p *Publisher) SendText(ctx context.Context, text string, action *catalog.Action) (int64, error) {
	payload := map[string]any{
		"chat_id": p.cfg.ChatID,
		"text":    text,
	}
	if markup := actionMarkup(action); markup != nil {
		payload["reply_markup"] = markup
	}
	var msg message
	if err := p.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendPhoto posts a photo by URL with a caption, optionally with an order
// button.
func (p *Publisher) SendPhoto(ctx context.Context, photoURL, caption string, action *catalog.Action) (int64, error) {
	payload := map[string]any{
		"chat_id": p.cfg.ChatID,
		"photo":   photoURL,
		"caption": caption,
	}
	if markup := actionMarkup(action); markup != nil {
		payload["reply_markup"] = markup
	}
	var msg message
	if err := p.call(ctx, "sendPhoto", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendPhotoGroup posts the remaining photos of a listing as a media group.
func (p *Publisher) SendPhotoGroup(ctx context.Context, photoURLs []string) ([]int64, error) {
	media := make([]map[string]string, 0, len(photoURLs))
	for _, u := range photoURLs {
		media = append(media, map[string]string{"type": "photo", "media": u})
	}
	payload := map[string]any{
		"chat_id": p.cfg.ChatID,
		"media":   media,
	}
	var msgs []message
	if err := p.call(ctx, "sendMediaGroup", payload, &msgs); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.MessageID)
	}
	return ids, nil
}

// Delete removes a channel post by message id.
func (p *Publisher) Delete(ctx context.Context, messageID int64) error {
	payload := map[string]any{
		"chat_id":    p.cfg.ChatID,
		"message_id": messageID,
	}
	var ok bool
	if err := p.call(ctx, "deleteMessage", payload, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("telegram: deleteMessage(%d) returned false", messageID)
	}
	return nil
}

// RecentMessages returns the most recent channel posts the Bot API still
// exposes. Telegram keeps only a bounded update window, so this is a
// best-effort view, which is all the reaper needs.
func (p *Publisher) RecentMessages(ctx context.Context, limit int) ([]catalog.ChannelMessage, error) {
	payload := map[string]any{
		"offset":          -limit,
		"allowed_updates": []string{"channel_post"},
	}
	var updates []update
	if err := p.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	out := make([]catalog.ChannelMessage, 0, len(updates))
	for _, u := range updates {
		if u.ChannelPost == nil {
			continue
		}
		text := u.ChannelPost.Text
		if text == "" {
			text = u.ChannelPost.Caption
		}
		out = append(out, catalog.ChannelMessage{ID: u.ChannelPost.MessageID, Text: text})
	}
	return out, nil
}

func (p *Publisher) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: encode %s payload: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", p.cfg.BaseURL, p.cfg.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("telegram: %s failed: %s", method, api.Description)
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}
