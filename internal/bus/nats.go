package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection with JSON helpers.
type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("artpress"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Conn() *nats.Conn { return c.nc }

func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, b)
}

// Handler processes one message body.
type Handler func(ctx context.Context, data []byte)

// Subscription is a queue subscription whose handlers run concurrently.
type Subscription struct {
	sub      *nats.Subscription
	inflight sync.WaitGroup
}

// QueueSubscribeJSON delivers each message on subject to one member of queue.
// Up to concurrency handlers run at once; further deliveries wait for a free
// slot. Each handler gets a context derived from ctx and bounded by timeout.
func (c *Client) QueueSubscribeJSON(ctx context.Context, subject, queue string, concurrency int, timeout time.Duration, handler Handler) (*Subscription, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	s := &Subscription{}
	slots := make(chan struct{}, concurrency)

	sub, err := c.nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		slots <- struct{}{}
		s.inflight.Add(1)
		go func(data []byte) {
			defer func() {
				<-slots
				s.inflight.Done()
			}()
			hctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			handler(hctx, data)
		}(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

// Drain stops new deliveries and waits, up to timeout, for pending messages
// and running handlers to finish.
func (s *Subscription) Drain(timeout time.Duration) error {
	if err := s.sub.Drain(); err != nil {
		return err
	}
	// queued callbacks still run after Drain returns
	deadline := time.Now().Add(timeout)
	for s.sub.IsValid() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(time.Until(deadline)):
		return context.DeadlineExceeded
	}
}
