package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bookquill/bookquill/internal/answer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsAskRequest is the incoming websocket message format.
type wsAskRequest struct {
	Query string `json:"query"`
}

// handleAskWS answers questions over a websocket. Each incoming message is
// one question; the answer events are written back as JSON messages in
// order, ending with a terminal event.
func (s *Server) handleAskWS(w http.ResponseWriter, r *http.Request) {
	readerID, ok := s.readerID(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req wsAskRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if req.Query == "" {
			if err := conn.WriteJSON(answer.Event{Type: answer.EventError, Err: "query is required"}); err != nil {
				return
			}
			continue
		}

		for ev := range s.engine.AnswerStream(r.Context(), readerID, req.Query) {
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}
