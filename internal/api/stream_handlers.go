package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// Message types exchanged over the websocket.
const (
	MessageView  = "VIEW"
	MessagePing  = "PING"
	MessagePong  = "PONG"
	MessageMode  = "MODE"
	MessageWord  = "WORD"
	MessageReset = "RESET"
	MessageError = "ERROR"
)

type WebSocketMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler streams session views as Server-Sent Events until the client
// goes away or the session is closed.
func (app *App) EventsHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	views, unsubscribe := s.Subscribe()
	defer unsubscribe()

	clientGone := r.Context().Done()

	for {
		select {
		case view, ok := <-views:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			data, err := json.Marshal(view)
			if err != nil {
				app.logger(r).Warn("marshaling view", zap.Error(err))
				continue
			}

			fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}

// WebSocketHandler streams session views and accepts PING, MODE, WORD and
// RESET commands from the client.
func (app *App) WebSocketHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.logger(r).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := app.logger(r)
	logger.Debug("websocket client connected")

	views, unsubscribe := s.Subscribe()
	defer unsubscribe()

	replies := make(chan WebSocketMessage, 8)
	quit := make(chan struct{})
	readDone := make(chan struct{})
	defer close(quit)

	go app.wsReadPump(r, conn, s, replies, quit, readDone)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case view, ok := <-views:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(newMessage(MessageView, view)); err != nil {
				return
			}

		case msg := <-replies:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-readDone:
			logger.Debug("websocket client disconnected")
			return
		}
	}
}

func (app *App) wsReadPump(r *http.Request, conn *websocket.Conn, s *session.Session, replies chan<- WebSocketMessage, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	logger := app.logger(r)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	reply := func(msg WebSocketMessage) bool {
		select {
		case replies <- msg:
			return true
		case <-quit:
			return false
		}
	}

	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		// State changes are delivered through the view subscription; only
		// errors and pongs are answered directly.
		var err error
		switch msg.Type {
		case MessagePing:
			if !reply(newMessage(MessagePong, nil)) {
				return
			}
			continue
		case MessageMode:
			var req modeRequest
			if err = json.Unmarshal(msg.Payload, &req); err == nil {
				var mode session.Mode
				if mode, err = session.ParseMode(req.Mode); err == nil {
					err = s.SetMode(r.Context(), mode)
				}
			}
		case MessageWord:
			var req wordRequest
			if err = json.Unmarshal(msg.Payload, &req); err == nil {
				_, err = s.ChooseWord(req.Input)
			}
		case MessageReset:
			s.Reset(r.Context())
		default:
			err = fmt.Errorf("unknown message type %q", msg.Type)
		}

		if err != nil {
			if !reply(newMessage(MessageError, errorResponse{Error: err.Error()})) {
				return
			}
		}
	}
}

func newMessage(kind string, payload any) WebSocketMessage {
	msg := WebSocketMessage{Type: kind, Timestamp: time.Now().Unix()}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			msg.Payload = data
		}
	}
	return msg
}
