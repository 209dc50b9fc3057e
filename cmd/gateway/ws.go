package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"agent-cag/internal/app"
	"agent-cag/internal/httputil"
	"agent-cag/internal/pipeline"
)

const wsQueryTimeout = 120 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsError struct {
	Error string `json:"error"`
}

// wsQueryHandler answers each inbound query frame with a response frame.
func wsQueryHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			gw.Log.Warn("websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxQueryBody)

		// The session outlives the router's per-request timeout.
		base := context.WithoutCancel(r.Context())
		log := gw.Log.With("remote", r.RemoteAddr)
		log.Info("websocket session opened")

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if isClosed(err) {
					log.Info("websocket session closed")
				} else {
					log.Warn("websocket read failed", "err", err)
				}
				return
			}

			var req pipeline.Request
			if err := json.Unmarshal(msg, &req); err != nil {
				if werr := conn.WriteJSON(wsError{Error: "invalid request body"}); werr != nil {
					return
				}
				continue
			}
			if err := httputil.Validator.Struct(req); err != nil {
				if werr := conn.WriteJSON(wsError{Error: err.Error()}); werr != nil {
					return
				}
				continue
			}

			ctx, cancel := context.WithTimeout(base, wsQueryTimeout)
			resp, err := gw.Pipeline.Process(ctx, req)
			cancel()
			if err != nil {
				log.Warn("websocket query failed", "err", err)
				if werr := conn.WriteJSON(wsError{Error: err.Error()}); werr != nil {
					return
				}
				continue
			}
			if err := conn.WriteJSON(resp); err != nil {
				log.Warn("websocket write failed", "err", err)
				return
			}
		}
	}
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}
