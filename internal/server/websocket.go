package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	appmiddleware "github.com/lewisedginton/rota/internal/middleware"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/sessionid"
)

const wsWriteWait = 10 * time.Second

// handleWebsocket chats over one connection: every text frame is a message and
// every reply a JSON {response, mood} frame. An exit word closes the socket after
// the goodbye.
func (a *API) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		a.log.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	session := sessionid.New("ws").String()
	log := logger.GetLoggerFromContext(r.Context(), a.log).WithFields(logger.StringField("session_id", session))
	log.Info("Websocket session opened", logger.ClientIPField(appmiddleware.ClientIP(r)))
	conn.SetReadLimit(a.c.Config.Security.MaxRequestSize)

	ctx := r.Context()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Websocket read failed", logger.ErrorField(err))
			}
			log.Info("Websocket session closed")
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		resp, err := a.c.Executor.Execute(ctx, executor.MessageRequest{SessionID: session, Message: text})
		if err != nil && resp.Text == "" {
			log.Warn("Websocket message failed", logger.ErrorField(err))
			if werr := a.writeFrame(conn, appmiddleware.ErrorBody{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := a.writeFrame(conn, resp); err != nil {
			log.Warn("Websocket write failed", logger.ErrorField(err))
			return
		}
		if resp.Exit {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "goodbye")
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				log.Debug("Websocket close failed", logger.ErrorField(err))
			}
			return
		}
	}
}

func (a *API) writeFrame(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
