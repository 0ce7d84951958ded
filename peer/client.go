package peer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"coup-lite/card"
	"coup-lite/codec"
	"coup-lite/coup"

	"nhooyr.io/websocket"
)

const (
	readLimit    = 1 << 20
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
	updateBuffer = 64
)

var (
	ErrClosed   = errors.New("peer connection closed")
	ErrNoPrompt = errors.New("no open prompt")
)

// Options tune Dial. Everything is optional.
type Options struct {
	Origin string
	// Updates receives the type of every applied host frame. Frames are
	// dropped for a slow reader; the mirror still applies them.
	Updates chan codec.MsgType
}

// Client is a peer connected to a host over websocket.
type Client struct {
	conn   *websocket.Conn
	mirror *Mirror
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	errMu sync.Mutex
	err   error
}

// Dial connects to a host websocket endpoint and starts reading.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	var dialOpts *websocket.DialOptions
	if opts.Origin != "" {
		dialOpts = &websocket.DialOptions{HTTPHeader: http.Header{"Origin": []string{opts.Origin}}}
	}
	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(readLimit)

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		mirror: NewMirror(),
		opts:   opts,
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	go c.keepAlive()
	return c, nil
}

func (c *Client) Mirror() *Mirror { return c.mirror }

// Done is closed once the read loop stops.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the read loop stopped.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.cancel()
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()
			return
		}
		env, err := codec.Decode(data)
		if err != nil {
			log.Printf("[Peer] Dropping frame: %v", err)
			continue
		}
		if err := c.mirror.Apply(env); err != nil {
			if errors.Is(err, codec.ErrProtocolDesync) {
				log.Printf("[Peer] %v, requesting resync", err)
				if err := c.RequestResync(c.ctx); err != nil {
					log.Printf("[Peer] Resync request failed: %v", err)
				}
				continue
			}
			log.Printf("[Peer] Ignoring %s: %v", env.Type, err)
			continue
		}
		c.notify(env.Type)
	}
}

func (c *Client) notify(t codec.MsgType) {
	if c.opts.Updates == nil {
		return
	}
	select {
	case c.opts.Updates <- t:
	default:
	}
}

func (c *Client) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) send(ctx context.Context, t codec.MsgType, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	data, err := codec.Encode(t, 0, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Join asks for a seat. Room "" quick-starts; a Token resumes a seat.
func (c *Client) Join(ctx context.Context, p codec.PlayerJoinPayload) error {
	return c.send(ctx, codec.TypePlayerJoin, p)
}

func (c *Client) Leave(ctx context.Context) error {
	return c.send(ctx, codec.TypePlayerLeave, nil)
}

func (c *Client) StartGame(ctx context.Context) error {
	return c.send(ctx, codec.TypeStartGame, nil)
}

func (c *Client) AddBot(ctx context.Context, profile string) error {
	return c.send(ctx, codec.TypeAddBot, codec.AddBotPayload{Profile: profile})
}

// RequestResync asks the host for a full stateSync.
func (c *Client) RequestResync(ctx context.Context) error {
	return c.send(ctx, codec.TypeResyncRequest, codec.ResyncRequestPayload{Seq: c.mirror.Seq()})
}

// Act answers an action prompt.
func (c *Client) Act(ctx context.Context, action coup.ActionType, target string) error {
	reqID, err := c.answering(coup.PromptAction)
	if err != nil {
		return err
	}
	return c.answer(c.send(ctx, codec.TypeAction, codec.ActionPayload{ReqID: reqID, Action: action, Target: target}))
}

// React answers a challenge or block window.
func (c *Client) React(ctx context.Context, kind coup.ReactionKind, role card.Role) error {
	reqID, err := c.answering(coup.PromptChallengeAction, coup.PromptBlock, coup.PromptChallengeBlock)
	if err != nil {
		return err
	}
	return c.answer(c.send(ctx, codec.TypeReaction, codec.ReactionPayload{ReqID: reqID, Kind: kind, Role: role}))
}

// Lose picks the influence to give up.
func (c *Client) Lose(ctx context.Context, cardIndex int) error {
	reqID, err := c.answering(coup.PromptInfluenceLoss)
	if err != nil {
		return err
	}
	return c.answer(c.send(ctx, codec.TypeSelection, codec.SelectionPayload{ReqID: reqID, Card: cardIndex}))
}

// Keep picks the cards kept after an exchange draw.
func (c *Client) Keep(ctx context.Context, keep []int) error {
	reqID, err := c.answering(coup.PromptExchange)
	if err != nil {
		return err
	}
	return c.answer(c.send(ctx, codec.TypeSelection, codec.SelectionPayload{ReqID: reqID, Keep: append([]int{}, keep...)}))
}

// answer reopens the prompt when the frame could not be written.
func (c *Client) answer(err error) error {
	if err != nil {
		c.mirror.restorePrompt()
	}
	return err
}

func (c *Client) answering(kinds ...coup.PromptKind) (string, error) {
	p := c.mirror.Prompt()
	if p == nil {
		return "", ErrNoPrompt
	}
	for _, k := range kinds {
		if p.Kind == k {
			return c.mirror.takePrompt(), nil
		}
	}
	return "", fmt.Errorf("%w: open prompt is %v", ErrNoPrompt, p.Kind)
}
