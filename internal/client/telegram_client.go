package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/httpclient"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultTelegramBaseURL is the Telegram Bot API.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// TelegramConfig holds the bot credentials and delivery options.
type TelegramConfig struct {
	BaseURL         string
	BotToken        string
	ChatID          string
	EditLastMessage bool
	// MinInterval spaces consecutive calls; Telegram throttles bots that post faster than about one message per second.
	MinInterval time.Duration
}

// TelegramClient sends and edits markdown messages in one chat.
// It remembers the last report it sent so later reports can edit it in place.
type TelegramClient struct {
	exec    Executor
	policy  httpclient.RetryPolicy
	cfg     TelegramConfig
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	lastID   int64
	lastText string
}

// NewTelegramClient creates a TelegramClient.
func NewTelegramClient(exec Executor, policy httpclient.RetryPolicy, cfg TelegramConfig, logger *zap.Logger) *TelegramClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTelegramBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &TelegramClient{
		exec:    exec,
		policy:  policy,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("TelegramClient"),
	}
}

type telegramMessageRequest struct {
	ChatID                string `json:"chat_id"`
	MessageID             int64  `json:"message_id,omitempty"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (c *TelegramClient) call(ctx context.Context, method string, payload telegramMessageRequest) (*telegramResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal telegram %s: %w", method, err)
	}

	// токен бота не должен попадать в логи и ошибки
	raw, err := c.exec.Do(ctx, c.policy, httpclient.Request{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.BotToken, method),
		SafeURL: fmt.Sprintf("%s/bot<token>/%s", c.cfg.BaseURL, method),
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, err)
	}

	var resp telegramResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal telegram %s response: %w", method, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram %s rejected: %s", method, resp.Description)
	}
	return &resp, nil
}

// SendMessage posts text as a new message and returns its id.
func (c *TelegramClient) SendMessage(ctx context.Context, text string) (int64, error) {
	resp, err := c.call(ctx, "sendMessage", telegramMessageRequest{
		ChatID:                c.cfg.ChatID,
		Text:                  text,
		ParseMode:             "markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return 0, err
	}
	return resp.Result.MessageID, nil
}

// EditMessage replaces the text of message id.
func (c *TelegramClient) EditMessage(ctx context.Context, id int64, text string) error {
	_, err := c.call(ctx, "editMessageText", telegramMessageRequest{
		ChatID:                c.cfg.ChatID,
		MessageID:             id,
		Text:                  text,
		ParseMode:             "markdown",
		DisableWebPagePreview: true,
	})
	return err
}

// Publish delivers a report. In edit mode the previous report message is edited, and nothing is sent when the
// text has not changed.
func (c *TelegramClient) Publish(ctx context.Context, report *entity.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.EditLastMessage && c.lastID != 0 {
		if report.Text == c.lastText {
			c.logger.Debug("Report unchanged, skipping edit", zap.Int64("messageID", c.lastID))
			return nil
		}
		err := c.EditMessage(ctx, c.lastID, report.Text)
		if err == nil {
			c.lastText = report.Text
			return nil
		}
		if entity.IsFatal(err) || ctx.Err() != nil {
			return err
		}
		c.logger.Warn("Editing last report failed, sending a new message", zap.Int64("messageID", c.lastID), zap.Error(err))
	}

	id, err := c.SendMessage(ctx, report.Text)
	if err != nil {
		return err
	}
	c.lastID, c.lastText = id, report.Text
	return nil
}

// Alert sends text as a standalone message without touching the tracked report message.
func (c *TelegramClient) Alert(ctx context.Context, text string) error {
	_, err := c.SendMessage(ctx, text)
	return err
}
