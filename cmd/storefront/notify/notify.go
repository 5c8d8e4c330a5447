// Package notify announces placed orders: a log line for the shop admin and,
// when configured, a webhook delivery.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/SanteonNL/storefront/models/shop"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// OrderPlacedEvent is the webhook payload.
type OrderPlacedEvent struct {
	Event      string    `json:"event"`
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type Options struct {
	WebhookURL string
	RetryMax   int
	Timeout    time.Duration
}

type Notifier struct {
	webhookURL string
	client     *retryablehttp.Client
	log        zerolog.Logger
	wg         sync.WaitGroup
	onDelivery func(err error)
}

func New(opts Options, log zerolog.Logger) *Notifier {
	n := &Notifier{
		webhookURL: opts.WebhookURL,
		log:        log.With().Str("component", "notify").Logger(),
	}

	if opts.WebhookURL != "" {
		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = 3
		if opts.RetryMax > 0 {
			retryClient.RetryMax = opts.RetryMax
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		retryClient.HTTPClient = &http.Client{Timeout: timeout}
		retryClient.Logger = leveledLogger{log: n.log}
		n.client = retryClient
	}
	return n
}

// OnDelivery registers fn to be called after every webhook attempt chain.
func (n *Notifier) OnDelivery(fn func(err error)) {
	n.onDelivery = fn
}

// OrderPlaced logs the order and schedules the webhook delivery. It never
// blocks on the network.
func (n *Notifier) OrderPlaced(order shop.Order) {
	n.log.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Float64("total_price", order.TotalPrice).
		Str("status", order.Status).
		Time("created_at", order.CreatedAt).
		Msg("New order placed")

	if n.client == nil {
		return
	}

	event := OrderPlacedEvent{
		Event:      "order.placed",
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
		CreatedAt:  order.CreatedAt,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		err := n.deliver(context.Background(), event)
		if err != nil {
			n.log.Error().Err(err).Int64("order_id", event.OrderID).Msg("Failed to deliver order notification")
		} else {
			n.log.Info().Int64("order_id", event.OrderID).Msg("Delivered order notification")
		}
		if n.onDelivery != nil {
			n.onDelivery(err)
		}
	}()
}

func (n *Notifier) deliver(ctx context.Context, event OrderPlacedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send order notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close waits for pending deliveries.
func (n *Notifier) Close() {
	n.wg.Wait()
}

// leveledLogger routes retryablehttp logging through zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
