package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// handleWebsocket upgrades the request and runs the connection until the
// socket drops. The peer state machine handles everything above the
// transport, the first frame's in-band authentication included.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newWSClient(ws, s.log)
	go client.writePump()

	peer := s.engine.NewPeer(client)
	defer func() {
		peer.Closed()
		_ = client.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
		peer.HandleFrame(r.Context(), data)
	}
}
