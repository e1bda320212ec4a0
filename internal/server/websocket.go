package server

import (
	"net/http"

	"nhooyr.io/websocket"

	"puzzlerooms/internal/matching"
	"puzzlerooms/internal/room"
)

// handleRoomSocket upgrades a connection and attaches it to its room
// actor. Identity comes from the query string; matchmade rooms also
// require the access secret handed out with goRoom.
func (s *Server) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rm, ok := s.manager.Get(id)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	playerID := r.URL.Query().Get("playerId")
	playerName := r.URL.Query().Get("playerName")
	if playerID == "" || playerName == "" {
		http.Error(w, "playerId and playerName required", http.StatusBadRequest)
		return
	}
	if err := s.manager.VerifySecret(rm, r.URL.Query().Get("secret")); err != nil {
		s.log.Warn("room secret rejected", "room", id, "player", playerID, "err", err)
		http.Error(w, "invalid secret", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		s.log.Warn("websocket accept", "err", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	conn := room.NewConn(playerID)
	if err := rm.Connect(playerID, playerName, conn); err != nil {
		s.log.Warn("connection refused", "room", id, "player", playerID, "err", err)
		ws.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer rm.Disconnect(conn)

	// Writer goroutine: drain the actor's outbound channel.
	go func() {
		for msg := range conn.Outbound() {
			if err := ws.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		rm.HandleAction(conn, data)
	}
}

// handleMatchingSocket attaches a connection to the matchmaker queue.
func (s *Server) handleMatchingSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	playerName := r.URL.Query().Get("playerName")
	if playerID == "" || playerName == "" {
		http.Error(w, "playerId and playerName required", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("websocket accept", "err", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	conn := matching.NewConn(playerID)
	s.matchmaker.Join(conn)
	defer s.matchmaker.Leave(conn)

	go func() {
		for msg := range conn.Outbound() {
			if err := ws.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		s.matchmaker.HandleMessage(conn, data)
	}
}
