package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"puzzlerooms/internal/game"
	"puzzlerooms/internal/matching"
	"puzzlerooms/internal/room"
)

// Server is the HTTP server.
type Server struct {
	mux        *http.ServeMux
	registry   *game.Registry
	manager    *room.Manager
	matchmaker *matching.Matchmaker
	log        *slog.Logger
}

// New creates a server with all routes.
func New(registry *game.Registry, manager *room.Manager, matchmaker *matching.Matchmaker, log *slog.Logger) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		registry:   registry,
		manager:    manager,
		matchmaker: matchmaker,
		log:        log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}/ws", s.handleRoomSocket)
	s.mux.HandleFunc("GET /api/matching/ws", s.handleMatchingSocket)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

type createRoomRequest struct {
	GameType string     `json:"gameType"`
	Rules    game.Rules `json:"rules"`
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.GameType = strings.TrimSpace(req.GameType)
	if req.GameType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gameType required"})
		return
	}
	if req.Rules.TimeLimit <= 0 {
		req.Rules.TimeLimit = 10
	}

	rm, err := s.manager.Create(req.GameType, req.Rules, false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: rm.ID})
}

type roomInfoResponse struct {
	ID       string     `json:"id"`
	GameType string     `json:"gameType"`
	Phase    room.Phase `json:"phase"`
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rm, ok := s.manager.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, roomInfoResponse{ID: rm.ID, GameType: rm.GameType, Phase: rm.Phase()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
