package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type wsClient struct {
	url  string
	conn *websocket.Conn
}

func newWSClient(url string) *wsClient {
	return &wsClient{url: url}
}

func (c *wsClient) connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)
	c.conn = conn
	return nil
}

func (c *wsClient) close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

type orderSubscribeRequest struct {
	Type     string   `json:"type"`
	OrderIDs []string `json:"order_ids,omitempty"`
}

func (c *wsClient) subscribeOrders(ctx context.Context, orderIDs []string) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	payload, err := json.Marshal(orderSubscribeRequest{Type: "orders", OrderIDs: orderIDs})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *wsClient) read(ctx context.Context) (FillEvent, error) {
	if c == nil || c.conn == nil {
		return FillEvent{}, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return FillEvent{}, err
	}
	var ev FillEvent
	_ = json.Unmarshal(data, &ev)
	return ev, nil
}

// OrderIDProvider returns the executor order ids currently awaiting a fill
// confirmation.
type OrderIDProvider func(context.Context) ([]string, error)

type FillStreamOptions struct {
	URL             string
	OrderIDProvider OrderIDProvider
	RefreshInterval time.Duration
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	Logger          *zap.Logger
}

// FillStream consumes the executor's order-event websocket so fills and
// rejections land without waiting for the next poll cycle. Polling remains
// the source of truth; the stream only accelerates it.
type FillStream struct {
	opts FillStreamOptions
}

func NewFillStream(opts FillStreamOptions) *FillStream {
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	return &FillStream{opts: opts}
}

func (s *FillStream) Run(ctx context.Context, onEvent func(FillEvent)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	if strings.TrimSpace(s.opts.URL) == "" {
		return fmt.Errorf("stream url is empty")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := newWSClient(s.opts.URL)
		if err := client.connect(ctx); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("executor ws connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}

		orderIDs := s.currentOrderIDs(ctx)
		if err := client.subscribeOrders(ctx, orderIDs); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("executor ws subscribe failed", zap.Error(err))
			}
			_ = client.close(websocket.StatusInternalError, "subscribe failed")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("executor ws subscribed", zap.Int("orders", len(orderIDs)))
		}
		backoff = s.opts.BackoffMin

		err := s.consume(ctx, client, onEvent)
		_ = client.close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *FillStream) consume(ctx context.Context, client *wsClient, onEvent func(FillEvent)) error {
	refresh := time.NewTicker(s.opts.RefreshInterval)
	defer refresh.Stop()

	events := make(chan FillEvent)
	readErr := make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			ev, err := client.read(readCtx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case events <- ev:
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case ev := <-events:
			if strings.TrimSpace(ev.OrderID) != "" && onEvent != nil {
				onEvent(ev)
			}
		case <-refresh.C:
			// Re-subscribe so orders submitted since connect are covered.
			if err := client.subscribeOrders(ctx, s.currentOrderIDs(ctx)); err != nil {
				return err
			}
		}
	}
}

func (s *FillStream) currentOrderIDs(ctx context.Context) []string {
	if s.opts.OrderIDProvider == nil {
		return nil
	}
	ids, err := s.opts.OrderIDProvider(ctx)
	if err != nil {
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("executor ws order id refresh failed", zap.Error(err))
		}
		return nil
	}
	return ids
}

func sleepWithJitter(ctx context.Context, d time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	t := time.NewTimer(d + jitter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
