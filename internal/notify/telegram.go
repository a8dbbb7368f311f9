package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/txyyddss/actions-stock-monitor/internal/config"
	"github.com/txyyddss/actions-stock-monitor/internal/metrics"
	"github.com/txyyddss/actions-stock-monitor/internal/retry"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// sendError distinguishes retryable delivery failures from permanent ones.
type sendError struct {
	status    int
	transient bool
	err       error
}

func (e *sendError) Error() string {
	return fmt.Sprintf("telegram send failed (status %d): %v", e.status, e.err)
}

func (e *sendError) Unwrap() error { return e.err }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Telegram delivers event messages through the bot API, paced by a minimum
// inter-message interval. Delivery failures never propagate into state:
// exhausted retries are logged as undelivered and dropped.
type Telegram struct {
	client  *resty.Client
	chatID  string
	limiter *rate.Limiter
	retry   *retry.Policy
	dryRun  bool
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewTelegram(cfg config.NotifyConfig, dryRun bool, log *zap.Logger, m *metrics.Metrics) *Telegram {
	interval := time.Duration(cfg.MinIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	client := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + cfg.BotToken).
		SetTimeout(time.Duration(cfg.SendTimeoutSeconds) * time.Second).
		SetRetryCount(0)

	pol := retry.New(cfg.MaxRetries,
		time.Duration(cfg.BackoffInitialMs)*time.Millisecond,
		time.Duration(cfg.BackoffMaxMs)*time.Millisecond,
		func(err error) bool {
			var se *sendError
			return errors.As(err, &se) && se.transient
		})

	return &Telegram{
		client:  client,
		chatID:  cfg.ChatID,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   pol,
		dryRun:  dryRun,
		log:     log,
		metrics: m,
	}
}

// Notify renders and sends one event. Dry-run mode exercises rendering and
// pacing but suppresses the API call, so a dry run is otherwise identical.
func (t *Telegram) Notify(ctx context.Context, ev stock.Event) error {
	text := Render(ev)

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	if t.dryRun {
		t.log.Info("dry-run notification",
			zap.String("kind", string(ev.Kind)),
			zap.String("listing", ev.Listing.ID),
			zap.Int("chars", len(text)))
		return nil
	}

	err := t.retry.Do(ctx, func() error {
		return t.send(ctx, text)
	})
	if err != nil {
		if t.metrics != nil {
			t.metrics.NotifyFailures.Inc()
		}
		t.log.Error("notification undelivered",
			zap.String("kind", string(ev.Kind)),
			zap.String("listing", ev.Listing.ID),
			zap.Error(err))
		return err
	}

	t.log.Info("notification sent",
		zap.String("kind", string(ev.Kind)),
		zap.String("listing", ev.Listing.ID))
	return nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	var body telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":                  t.chatID,
			"text":                     text,
			"parse_mode":               "HTML",
			"disable_web_page_preview": "true",
		}).
		SetResult(&body).
		SetError(&body).
		Post("/sendMessage")
	if err != nil {
		return &sendError{transient: true, err: err}
	}

	if body.OK {
		return nil
	}

	code := resp.StatusCode()
	transient := code == 429 || code >= 500
	return &sendError{
		status:    code,
		transient: transient,
		err:       fmt.Errorf("%s", body.Description),
	}
}
