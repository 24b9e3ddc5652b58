// SPDX-License-Identifier: AGPL-3.0-only
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/fluffyriot/bookshare/internal/stats"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultChannel   = "RoomChannel"
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

var (
	ErrAlreadySubscribed = errors.New("relay: already subscribed")
	ErrClosed            = errors.New("relay: closed")
	ErrNotSubscribed     = errors.New("relay: not subscribed")
	ErrRejected          = errors.New("relay: subscription rejected")
	ErrServerDisconnect  = errors.New("relay: server closed the connection")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Handler receives every inbound envelope, in arrival order.
type Handler func(models.ChatEnvelope)

// Relay holds one subscription to one channel. It is single-use: once it
// reaches Disconnected after subscribing it stays there.
type Relay struct {
	id         string
	url        string
	identifier string
	header     http.Header
	dialer     *websocket.Dialer

	mu       sync.Mutex
	state    State
	used     bool
	handlers []Handler
	conn     *websocket.Conn
	err      error

	writeMu  sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

func New(url, channel string, header http.Header) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	return &Relay{
		id:         uuid.NewString(),
		url:        url,
		identifier: channelIdentifier(channel),
		header:     h,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Subprotocols:     []string{Subprotocol},
		},
		done: make(chan struct{}),
	}
}

func (r *Relay) OnMessage(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done is closed when the relay reaches its terminal Disconnected state.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// Err returns why the relay disconnected, or nil after a clean Close.
func (r *Relay) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Subscribe connects and subscribes to the channel. The subscription lives
// until ctx is done, Close is called, or the transport fails.
func (r *Relay) Subscribe(ctx context.Context) error {
	r.mu.Lock()
	if r.used {
		closed := r.state == Disconnected
		r.mu.Unlock()
		if closed {
			return ErrClosed
		}
		return ErrAlreadySubscribed
	}
	r.used = true
	r.state = Connecting
	r.mu.Unlock()

	log.Printf("Relay %s: connecting to %s", r.id, r.url)

	conn, _, err := r.dialer.DialContext(ctx, r.url, r.header)
	if err != nil {
		err = fmt.Errorf("relay: dial %s: %w", r.url, err)
		r.stop(err, false)
		return err
	}

	r.mu.Lock()
	if r.state != Connecting {
		// closed while dialing
		r.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	r.conn = conn
	r.mu.Unlock()

	if err := r.handshake(ctx, conn); err != nil {
		r.stop(err, false)
		return err
	}

	r.mu.Lock()
	if r.state != Connecting {
		r.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	r.state = Subscribed
	r.mu.Unlock()

	log.Printf("Relay %s: subscribed to %s", r.id, r.identifier)

	go r.readLoop(conn)
	go func() {
		select {
		case <-ctx.Done():
			r.stop(nil, true)
		case <-r.done:
		}
	}()

	return nil
}

func (r *Relay) handshake(ctx context.Context, conn *websocket.Conn) error {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		var f serverFrame
		if err := conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("relay: handshake: %w", err)
		}

		switch f.Type {
		case typeWelcome:
			if err := r.write(clientFrame{Command: commandSubscribe, Identifier: r.identifier}); err != nil {
				return fmt.Errorf("relay: subscribe: %w", err)
			}
		case typeConfirm:
			if f.Identifier == r.identifier {
				return nil
			}
		case typeReject:
			if f.Identifier == r.identifier {
				return ErrRejected
			}
		case typeDisconnect:
			return fmt.Errorf("%w: %s", ErrServerDisconnect, f.Reason)
		}
	}
}

func (r *Relay) readLoop(conn *websocket.Conn) {
	for {
		var f serverFrame
		if err := conn.ReadJSON(&f); err != nil {
			r.stop(fmt.Errorf("relay: read: %w", err), false)
			return
		}

		switch f.Type {
		case typePing, typeWelcome, typeConfirm:
			continue
		case typeDisconnect:
			r.stop(fmt.Errorf("%w: %s", ErrServerDisconnect, f.Reason), false)
			return
		}

		if f.Identifier != r.identifier || len(f.Message) == 0 {
			continue
		}

		var env models.ChatEnvelope
		if err := json.Unmarshal(f.Message, &env); err != nil {
			log.Printf("Relay %s: dropping undecodable message: %v", r.id, err)
			continue
		}
		stats.RelayMessages.WithLabelValues("in").Inc()

		r.mu.Lock()
		handlers := append([]Handler(nil), r.handlers...)
		r.mu.Unlock()

		for _, h := range handlers {
			h(env)
		}
	}
}

// Perform calls a channel action. It does not wait for any reply.
func (r *Relay) Perform(action string, payload map[string]any) error {
	if r.State() != Subscribed {
		return ErrNotSubscribed
	}
	data, err := performData(action, payload)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", action, err)
	}
	if err := r.write(clientFrame{Command: commandMessage, Identifier: r.identifier, Data: data}); err != nil {
		return fmt.Errorf("relay: %s: %w", action, err)
	}
	stats.RelayMessages.WithLabelValues("out").Inc()
	return nil
}

// Send speaks body on the channel.
func (r *Relay) Send(body string) error {
	return r.Perform("speak", map[string]any{"body": body})
}

// Close unsubscribes and releases the connection. It is safe to call more
// than once and from any goroutine.
func (r *Relay) Close() error {
	r.stop(nil, true)
	return nil
}

func (r *Relay) write(f clientFrame) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotSubscribed
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(f)
}

func (r *Relay) stop(reason error, polite bool) {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		conn := r.conn
		wasSubscribed := r.state == Subscribed
		r.state = Disconnected
		r.used = true
		r.err = reason
		r.mu.Unlock()

		if conn != nil {
			if polite && wasSubscribed {
				r.writeMu.Lock()
				deadline := time.Now().Add(writeTimeout)
				conn.SetWriteDeadline(deadline)
				_ = conn.WriteJSON(clientFrame{Command: commandUnsub, Identifier: r.identifier})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				r.writeMu.Unlock()
			}
			conn.Close()
		}

		if reason != nil {
			log.Printf("Relay %s: disconnected: %v", r.id, reason)
		} else {
			log.Printf("Relay %s: closed", r.id)
		}
		close(r.done)
	})
}

// WithSubscription subscribes r, runs fn, and tears the subscription down
// on every return path.
func WithSubscription(ctx context.Context, r *Relay, fn func(*Relay) error) error {
	defer r.Close()
	if err := r.Subscribe(ctx); err != nil {
		return err
	}
	return fn(r)
}
