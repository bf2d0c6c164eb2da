package arena

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/logx"
	"dojo/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// sendBuffer is the number of outbound frames queued per session before it is dropped.
	sendBuffer = 256

	// commandRate and commandBurst bound the inbound frames accepted per session.
	commandRate  = 20
	commandBurst = 40
)

// Client is one WebSocket connection. It is the Sink of its session.
type Client struct {
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	sessionID string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// mu guards closed so Deliver never writes to a closed send channel.
	mu     sync.Mutex
	closed bool

	limiter *rate.Limiter

	// structured logger with session context.
	logger zerolog.Logger
}

// NewClient constructs a Client for conn with a fresh session id.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	sessionID := randx.SessionID()

	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
		limiter:   rate.NewLimiter(commandRate, commandBurst),
		logger:    logx.Logger().With().Str("session_id", sessionID).Logger(),
	}
}

// SessionID returns the transport session id.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Deliver queues frame without blocking.
func (c *Client) Deliver(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close ends the outbound stream; WritePump then sends a close frame and exits.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame decoding and dispatch, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(data)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c.sessionID)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame decodes one frame, dispatches its command and queues the ack.
func (c *Client) processInboundFrame(data []byte) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(data)).Msg("Client sent invalid JSON")
		return
	}

	if !c.limiter.Allow() {
		c.logger.Warn().Str("command", in.Type).Msg("Client exceeded command rate, dropping frame")
		c.sendAck(in.AckID, rejected(errs.NewError(errs.ErrRateLimitExceeded)))
		return
	}

	cmd, cerr := DecodeCommand(in.Type, in.Payload)
	if cerr != nil {
		c.logger.Warn().
			Str("command", in.Type).
			Int("code", cerr.Code).
			Msg("Client sent invalid command")
		c.sendAck(in.AckID, rejected(cerr))
		return
	}

	if ack := c.hub.Dispatch(c.sessionID, cmd); ack != nil {
		c.sendAck(in.AckID, ack)
	}
}

// sendAck queues an acknowledgment when the inbound frame asked for one.
func (c *Client) sendAck(ackID string, ack *Ack) {
	if ackID == "" {
		return
	}

	frame, err := json.Marshal(AckFrame{Type: EventAck, AckID: ackID, Payload: ack})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to encode ack")
		return
	}

	if !c.Deliver(frame) {
		c.logger.Warn().Str("ack_id", ackID).Msg("Client send queue full or closed, dropping ack")
	}
}

// WritePump handles writing frames from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping message to maintain the connection heartbeat.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
