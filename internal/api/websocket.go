package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alphapilot/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams every bus event to the client as JSON envelopes.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithModule("api").WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	if s.bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	stream, unsub := s.bus.SubscribeAll(256)
	defer unsub()

	for env := range stream {
		if err := conn.WriteJSON(env); err != nil {
			logger.WithModule("api").WithError(err).Debug("ws write failed, closing")
			return
		}
	}
}
