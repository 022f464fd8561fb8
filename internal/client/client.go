// Package client connects a client engine to a server over websocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game"
	"github.com/samalo0/Ceremony/internal/protocol"
)

const (
	sendBuffer  = 256
	writeWait   = 5 * time.Second
	welcomeWait = 10 * time.Second
)

var ErrRefused = errors.New("server refused session")

// Options configure Dial.
type Options struct {
	URL    string // ws://host:port/ws
	Name   string
	Header http.Header

	// Engine configures the client engine. Mode and Link are set by Dial.
	Engine game.Options
}

// Client is one websocket session and the client engine it feeds.
type Client struct {
	conn    *websocket.Conn
	engine  *game.Engine
	id      combat.CharacterID
	session string
	log     zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Dial connects, says hello and waits for the welcome. The returned
// client's engine is not started; call Run.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}

	welcome, err := handshake(ctx, conn, opts.Name)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:    conn,
		id:      welcome.Character,
		session: welcome.Session,
		log:     opts.Engine.Logger.With().Str("component", "client").Uint32("character", uint32(welcome.Character)).Logger(),
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}

	eopts := opts.Engine
	eopts.Mode = combat.Client
	eopts.Link = c
	if eopts.Config.Server.TickRate <= 0 {
		eopts.Config = config.Default()
	}
	if welcome.TickRate > 0 {
		eopts.Config.Server.TickRate = welcome.TickRate
	}
	c.engine = game.NewEngine(eopts)
	c.engine.Submit(game.Command{Kind: game.CommandWelcome, Character: welcome.Character})

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	c.log.Info().Str("session", c.session).Str("url", opts.URL).Msg("Connected")
	return c, nil
}

func handshake(ctx context.Context, conn *websocket.Conn, name string) (protocol.Welcome, error) {
	var w protocol.Welcome
	hello, err := protocol.New(protocol.TypeHello, 0, "", protocol.Hello{Name: name})
	if err != nil {
		return w, err
	}
	data, err := protocol.Marshal(hello)
	if err != nil {
		return w, err
	}
	deadline := time.Now().Add(welcomeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return w, fmt.Errorf("send hello: %w", err)
	}

	_ = conn.SetReadDeadline(deadline)
	_, data, err = conn.ReadMessage()
	if err != nil {
		return w, fmt.Errorf("await welcome: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	env, err := protocol.Unmarshal(data)
	if err != nil {
		return w, err
	}
	switch env.Type {
	case protocol.TypeWelcome:
		return protocol.Decode[protocol.Welcome](env)
	case protocol.TypeError:
		e, _ := protocol.Decode[protocol.Error](env)
		return w, fmt.Errorf("%w: %s", ErrRefused, e.Message)
	default:
		return w, fmt.Errorf("%w: got %s before welcome", protocol.ErrMalformed, env.Type)
	}
}

// ID returns the character this session controls.
func (c *Client) ID() combat.CharacterID { return c.id }

// Session returns the server's session id.
func (c *Client) Session() string { return c.session }

// Engine returns the client engine.
func (c *Client) Engine() *game.Engine { return c.engine }

// Done is closed when the session ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the session ended, if it ended with an error.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run ticks the client engine until ctx ends or the session drops.
func (c *Client) Run(ctx context.Context) error {
	c.engine.Start()
	defer c.engine.Stop()
	select {
	case <-ctx.Done():
		c.Close()
		return nil
	case <-c.done:
		return c.Err()
	}
}

// Close ends the session and waits for its goroutines.
func (c *Client) Close() {
	c.shutdown(nil)
	c.wg.Wait()
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Deliver implements game.Link: only this session's own server calls
// leave the node.
func (c *Client) Deliver(batch []game.Outgoing) {
	for _, out := range batch {
		if out.Kind != game.OutServerCall || out.Character != c.id {
			continue
		}
		env, ok, err := game.EncodeOutgoing(out, true)
		if err != nil || !ok {
			c.log.Warn().Err(err).Msg("server call not encodable")
			continue
		}
		data, err := protocol.Marshal(env)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		default:
			c.log.Warn().Str("call", env.Call).Msg("send buffer full, call dropped")
		}
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				c.shutdown(nil)
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					c.shutdown(nil)
				} else {
					c.shutdown(fmt.Errorf("read: %w", err))
				}
			}
			return
		}
		env, err := protocol.Unmarshal(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("bad frame")
			continue
		}
		cmd, err := game.DecodeCommand(env)
		if err != nil {
			c.log.Debug().Err(err).Str("type", string(env.Type)).Msg("frame ignored")
			continue
		}
		c.engine.Submit(cmd)
	}
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	defer c.conn.Close()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
