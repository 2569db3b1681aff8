package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dragon-peak/quiz-game-service/internal/bridge"
	"github.com/dragon-peak/quiz-game-service/internal/game"
	"github.com/dragon-peak/quiz-game-service/internal/models"
	"github.com/dragon-peak/quiz-game-service/internal/services"
	"github.com/dragon-peak/quiz-game-service/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// How long the mascot stays in its moving pose before the snapshot
	// settles again. Purely presentational; the engine never waits on it.
	mascotSettleDelay = 1600 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Change allow all origins in prod
	},
}

// playerAction is what a player connection sends: one of the four game
// actions, plus "snapshot" to re-fetch state after a reconnect.
type playerAction struct {
	Action   string `json:"action"`
	AnswerID string `json:"answer_id,omitempty"`
}

// serverMessage is the envelope for everything pushed to a socket client.
type serverMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// WebSocketHandler owns the two socket roles: the host frame that feeds
// questions over the bridge, and players that drive a session and
// receive snapshots and audio cues.
type WebSocketHandler struct {
	BaseHandler
	gameService services.GameService
}

func NewWebSocketHandler(gameService services.GameService, logger utils.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		BaseHandler: NewBaseHandler(logger),
		gameService: gameService,
	}
}

// socketWriter serializes writes from the action loop, the cue relay, the
// deferred animation timers and the ping ticker onto a single connection.
type socketWriter struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newSocketWriter(conn *websocket.Conn) *socketWriter {
	return &socketWriter{conn: conn, send: make(chan []byte, 16)}
}

func (w *socketWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.send)
	}
}

func (w *socketWriter) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case message, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (w *socketWriter) sendMessage(msgType string, payload interface{}) {
	data, err := json.Marshal(serverMessage{Type: msgType, Payload: payload})
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.send <- data:
	default:
		// Slow consumer; drop rather than block the game loop.
	}
}

// sendRaw queues a pre-marshaled frame; it reports failure so the bridge
// can surface an undeliverable message.
func (w *socketWriter) sendRaw(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return websocket.ErrCloseSent
	}
	select {
	case w.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (w *socketWriter) sendError(message string) {
	w.sendMessage("error", gin.H{"message": message})
}

// HandleHostSocket upgrades the host frame connection, creates a bridged
// session behind it and pumps bridge traffic in both directions. The
// first message the host receives is session_created with the id players
// use to join.
func (h *WebSocketHandler) HandleHostSocket(c *gin.Context) {
	snap, err := h.gameService.CreateSession(c.Request.Context(), &services.CreateSessionRequest{Bridged: true})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	sessionID := snap.SessionID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.LogError(err, "Failed to upgrade host connection", "session_id", sessionID)
		h.gameService.RemoveSession(sessionID)
		return
	}

	writer := newSocketWriter(conn)
	go writer.writePump()

	engine, err := h.gameService.Session(sessionID)
	if err != nil {
		writer.sendError(err.Error())
		writer.close()
		h.gameService.RemoveSession(sessionID)
		return
	}

	send := func(msg bridge.Message) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return writer.sendRaw(data)
	}

	b := bridge.New(engine, send, utils.ToSlogLogger(h.logger))
	if err := h.gameService.AttachBridge(sessionID, b); err != nil {
		writer.sendError(err.Error())
		writer.close()
		h.gameService.RemoveSession(sessionID)
		return
	}

	writer.sendMessage("session_created", gin.H{"session_id": sessionID})

	if err := b.Start(); err != nil {
		h.logger.LogError(err, "Failed to request first question", "session_id", sessionID)
	}

	h.logger.Info("Host connected", "session_id", sessionID, "remote_addr", c.ClientIP())

	defer func() {
		h.gameService.RemoveSession(sessionID)
		writer.close()
		conn.Close()
		h.logger.Info("Host disconnected", "session_id", sessionID)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("Host socket error", "session_id", sessionID, "error", err.Error())
			}
			return
		}

		var msg bridge.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			writer.sendError("Invalid message format")
			continue
		}
		b.HandleInbound(msg)
	}
}

// HandlePlayerSocket attaches a player to an existing session. The player
// drives the four actions and gets back snapshots plus the audio cues the
// engine emits.
func (h *WebSocketHandler) HandlePlayerSocket(c *gin.Context) {
	sessionID := c.Param("id")

	engine, err := h.gameService.Session(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	cues, err := h.gameService.Cues(sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.LogError(err, "Failed to upgrade player connection", "session_id", sessionID)
		return
	}

	writer := newSocketWriter(conn)
	go writer.writePump()

	cueCh := cues.Subscribe()
	cueDone := make(chan struct{})
	go func() {
		defer close(cueDone)
		for cue := range cueCh {
			writer.sendMessage("cue", gin.H{"cue": cue})
		}
	}()

	defer func() {
		// Unsubscribing closes the cue channel and ends the relay; only
		// then is the writer safe to close.
		cues.Unsubscribe(cueCh)
		<-cueDone
		writer.close()
		conn.Close()
		h.logger.Info("Player disconnected", "session_id", sessionID)
	}()

	h.logger.Info("Player connected", "session_id", sessionID, "remote_addr", c.ClientIP())

	h.pushSnapshot(writer, engine)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("Player socket error", "session_id", sessionID, "error", err.Error())
			}
			return
		}

		var action playerAction
		if err := json.Unmarshal(data, &action); err != nil {
			writer.sendError("Invalid message format")
			continue
		}

		h.dispatchAction(c, sessionID, engine, writer, action)
	}
}

func (h *WebSocketHandler) dispatchAction(c *gin.Context, sessionID string, engine *game.Session, writer *socketWriter, action playerAction) {
	ctx := c.Request.Context()

	var err error
	switch action.Action {
	case "select":
		_, err = h.gameService.SelectAnswer(ctx, sessionID, action.AnswerID)
	case "submit":
		_, err = h.gameService.Submit(ctx, sessionID)
	case "continue":
		_, err = h.gameService.Continue(ctx, sessionID)
	case "restart":
		_, err = h.gameService.Restart(ctx, sessionID)
	case "snapshot":
		// Nothing to do; the push below re-sends current state.
	default:
		writer.sendError("Unknown action: " + action.Action)
		return
	}
	if err != nil {
		writer.sendError(err.Error())
		return
	}

	snap := h.pushSnapshot(writer, engine)

	if snap.IsMascotMoving {
		time.AfterFunc(mascotSettleDelay, func() {
			engine.ClearMascotMoving()
			h.pushSnapshot(writer, engine)
		})
	}
}

func (h *WebSocketHandler) pushSnapshot(writer *socketWriter, engine *game.Session) models.SessionSnapshot {
	snap := engine.Snapshot()
	writer.sendMessage("snapshot", snap)
	return snap
}
