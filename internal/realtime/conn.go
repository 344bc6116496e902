package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/edugather/gatherd/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 1 << 20
)

var validate = validator.New()

// Handler consumes the raw payload of one inbound event.
type Handler func(payload json.RawMessage)

// Emitter sends fire-and-forget events toward the server. No acknowledgment
// is awaited.
type Emitter interface {
	Emit(name string, payload any) error
}

// Subscriber registers inbound event handlers. At most one handler exists
// per event name; registering again replaces the previous one.
type Subscriber interface {
	On(name string, h Handler)
	Off(name string)
}

// Conn is a client connection to the channel-event endpoint. It dispatches
// inbound events to registered handlers on a single read goroutine, so
// handlers observe events in delivery order.
type Conn struct {
	conn  *websocket.Conn
	hello HelloPayload
	log   zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ Emitter = (*Conn)(nil)
var _ Subscriber = (*Conn)(nil)

// Dial connects to the event endpoint and sends the hello frame that
// authenticates and scopes the connection.
func Dial(ctx context.Context, url string, hello HelloPayload, log zerolog.Logger) (*Conn, error) {
	if err := validate.Struct(hello); err != nil {
		return nil, fmt.Errorf("invalid hello payload: %w", err)
	}

	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	ws.SetReadLimit(maxMessageSize)

	wctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := wsjson.Write(wctx, ws, hello); err != nil {
		ws.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	return &Conn{
		conn:     ws,
		hello:    hello,
		log:      log,
		handlers: make(map[string]Handler),
	}, nil
}

// On registers the handler for an event name, replacing any previous one.
func (c *Conn) On(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Off removes the handler for an event name. A removed handler never fires
// again: dispatch re-reads the registry for every event.
func (c *Conn) Off(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, name)
}

// Emit sends an event toward the server. Fire-and-forget: a failed write is
// logged and returned, never retried.
func (c *Conn) Emit(name string, payload any) error {
	evt, err := NewEvent(name, payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, evt); err != nil {
		c.log.Warn().Err(err).Str("event", name).Msg("emit failed")
		return err
	}
	metrics.EventsEmitted.WithLabelValues(name).Inc()
	return nil
}

// Run reads events and keeps the connection alive until ctx is cancelled or
// the read fails. Handlers run on the read goroutine.
func (c *Conn) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.readPump(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pctx, cancel := context.WithTimeout(ctx, writeWait)
				err := c.conn.Ping(pctx)
				cancel()
				if err != nil {
					return fmt.Errorf("ping: %w", err)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return g.Wait()
}

// Close closes the underlying websocket.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Conn) readPump(ctx context.Context) error {
	for {
		var evt Event
		if err := wsjson.Read(ctx, c.conn, &evt); err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.Info().Msg("connection closed by server")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(&evt)
	}
}

func (c *Conn) dispatch(evt *Event) {
	c.mu.RLock()
	h, ok := c.handlers[evt.Name]
	c.mu.RUnlock()

	metrics.EventsReceived.WithLabelValues(evt.Name).Inc()
	if !ok {
		metrics.EventsDropped.WithLabelValues("unhandled").Inc()
		c.log.Debug().Str("event", evt.Name).Msg("no handler, dropping")
		return
	}
	h(evt.Payload)
}

// UserIDFromToken extracts the subject claim from an access token without
// verifying the signature. Verification is the server's job; the client only
// needs its own id for the hello payload.
func UserIDFromToken(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
