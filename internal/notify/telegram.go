package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/infra/retry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TelegramAPI is the part of *tgbotapi.BotAPI the sender uses.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	UploadFiles(endpoint string, params tgbotapi.Params, files []tgbotapi.RequestFile) (*tgbotapi.APIResponse, error)
}

type TelegramOptions struct {
	ChatID     int64
	TopicID    int // forum topic; 0 posts to the main thread
	MaxRetries int
	BaseDelay  time.Duration
	RateLimit  rate.Limit // messages per second
}

// TelegramSender posts HTML messages to one chat, optionally inside a topic.
type TelegramSender struct {
	api     TelegramAPI
	opts    TelegramOptions
	limiter *rate.Limiter
}

func NewTelegramSender(api TelegramAPI, opts TelegramOptions) *TelegramSender {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	return &TelegramSender{
		api:     api,
		opts:    opts,
		limiter: rate.NewLimiter(opts.RateLimit, 3),
	}
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) ChatID() int64 { return t.opts.ChatID }

func (t *TelegramSender) Send(ctx context.Context, a Alert) error {
	return t.SendHTML(ctx, FormatAlertMessage(a))
}

// SendHTML sends text as-is with HTML parse mode.
func (t *TelegramSender) SendHTML(ctx context.Context, text string) error {
	return t.do(ctx, "sendMessage", func() error {
		if t.opts.TopicID == 0 {
			msg := tgbotapi.NewMessage(t.opts.ChatID, text)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.DisableWebPagePreview = true
			_, err := t.api.Send(msg)
			return err
		}
		// tgbotapi v5.5.1 has no message_thread_id on MessageConfig
		params := t.baseParams()
		params["text"] = text
		params["parse_mode"] = tgbotapi.ModeHTML
		params.AddBool("disable_web_page_preview", true)
		_, err := t.api.MakeRequest("sendMessage", params)
		return err
	})
}

// SendPhoto uploads a PNG with an HTML caption.
func (t *TelegramSender) SendPhoto(ctx context.Context, name string, png []byte, caption string) error {
	file := tgbotapi.FileBytes{Name: name, Bytes: png}
	return t.do(ctx, "sendPhoto", func() error {
		if t.opts.TopicID == 0 {
			photo := tgbotapi.NewPhoto(t.opts.ChatID, file)
			photo.Caption = caption
			photo.ParseMode = tgbotapi.ModeHTML
			_, err := t.api.Send(photo)
			return err
		}
		params := t.baseParams()
		params.AddNonEmpty("caption", caption)
		params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
		_, err := t.api.UploadFiles("sendPhoto", params, []tgbotapi.RequestFile{{Name: "photo", Data: file}})
		return err
	})
}

func (t *TelegramSender) baseParams() tgbotapi.Params {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", t.opts.ChatID)
	params.AddNonZero("message_thread_id", t.opts.TopicID)
	return params
}

func (t *TelegramSender) do(ctx context.Context, method string, fn func() error) error {
	start := time.Now()
	err := retry.Do(ctx, retry.Options{
		MaxRetries: t.opts.MaxRetries,
		BaseDelay:  t.opts.BaseDelay,
		MaxDelay:   30 * time.Second,
		OnRetry: func(attempt int, err error, sleep time.Duration) {
			log.LogWarn("Telegram request failed, retrying",
				zap.String("method", method),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", sleep),
				zap.Error(err))
		},
	}, func() error {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		return telegramError(fn())
	})
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	log.LogInfo("Telegram message sent",
		zap.String("method", method),
		zap.Int64("chat_id", t.opts.ChatID),
		zap.Int("topic_id", t.opts.TopicID),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// telegramError maps Bot API errors onto retry.HTTPError so throttling and
// server errors are retried and Retry-After is honoured.
func telegramError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &retry.HTTPError{
			StatusCode: apiErr.Code,
			Body:       []byte(apiErr.Message),
			RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
		}
	}
	return err
}
