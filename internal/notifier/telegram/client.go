// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework_notifier/internal/domain"
)

// DefaultEndpoint is the Bot API endpoint template: token, then method.
const DefaultEndpoint = tgbotapi.APIEndpoint

const redactedToken = "***"

// Config contains configuration for the Telegram client.
type Config struct {
	// Token is the bot token.
	Token string

	// ChatID is the destination chat: a numeric id or an @channel username.
	ChatID string

	// Endpoint defaults to DefaultEndpoint.
	Endpoint string

	Timeout time.Duration

	// RetryAttempts is the number of retries after the first failed send.
	RetryAttempts int

	// RetryDelay is doubled after every retry.
	RetryDelay time.Duration
}

// Client sends messages to a single configured chat.
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	// channel is set instead of chatID for @username destinations.
	channel string
	config  Config
	logger  *slog.Logger
}

// NewClient checks the token with getMe and returns a client bound to cfg.ChatID.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	c := &Client{
		config: cfg,
		logger: logger.With("component", "telegram"),
	}

	switch {
	case strings.HasPrefix(cfg.ChatID, "@"):
		c.channel = cfg.ChatID
	default:
		id, err := strconv.ParseInt(cfg.ChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid telegram chat id %q", domain.ErrConfiguration, cfg.ChatID)
		}
		c.chatID = id
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram get me: %w", c.redact(err))
	}
	c.bot = bot

	c.logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return c, nil
}

// Notify sends text as a plain message to the configured chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	msg, err := c.send(ctx, c.newMessage(text))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	c.logger.Debug("message sent", "message_id", msg.MessageID)
	return nil
}

func (c *Client) newMessage(text string) tgbotapi.MessageConfig {
	if c.channel != "" {
		return tgbotapi.NewMessageToChannel(c.channel, text)
	}
	return tgbotapi.NewMessage(c.chatID, text)
}

// send retries rate limits, server errors and transport failures.
func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(1<<uint(attempt-1))

			if apiErr, ok := asAPIError(lastErr); ok && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}

			select {
			case <-ctx.Done():
				return tgbotapi.Message{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		sent, err := c.bot.Send(msg)
		if err == nil {
			return sent, nil
		}

		lastErr = c.redact(err)

		if !isRetryableError(lastErr) {
			return tgbotapi.Message{}, lastErr
		}

		c.logger.Warn("telegram send failed", "attempt", attempt+1, "error", lastErr)
	}

	return tgbotapi.Message{}, fmt.Errorf("send failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// redact strips the bot token from errors that carry the request URL.
func (c *Client) redact(err error) error {
	if err == nil || c.config.Token == "" {
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, c.config.Token, redactedToken)
	}

	if strings.Contains(err.Error(), c.config.Token) {
		return errors.New(strings.ReplaceAll(err.Error(), c.config.Token, redactedToken))
	}
	return err
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	return true
}

func asAPIError(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}
