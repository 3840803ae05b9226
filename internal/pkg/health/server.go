// Package health serves the console HTTP API: liveness probes, the match
// board, price resolution and account selection.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Melekhin/betdesk/internal/market"
	"github.com/Melekhin/betdesk/internal/matchstate"
	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/snapstore"
	"github.com/Melekhin/betdesk/internal/selection"
)

// Server is the console HTTP API.
type Server struct {
	store        *snapstore.Store
	engine       *selection.Engine
	defaultLimit int
}

// NewServer creates a Server over the snapshot store and selection engine.
// engine may be nil when the process runs poll-only.
func NewServer(store *snapstore.Store, engine *selection.Engine, defaultLimit int) *Server {
	return &Server{store: store, engine: engine, defaultLimit: defaultLimit}
}

// Run starts the server and shuts it down gracefully when ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/matches", s.handleMatches)
	mux.HandleFunc("/resolve", s.handleResolve)
	mux.HandleFunc("/selection", s.handleSelection)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Console API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Console API error", "error", err)
		}
	}()
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"streams": s.store.Streams(),
	})
}

// handleMatches returns the latest batch for one stream.
// GET /matches?sport=football&bucket=live
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	sport := strings.TrimSpace(r.URL.Query().Get("sport"))
	bucket := strings.TrimSpace(r.URL.Query().Get("bucket"))
	if sport == "" || bucket == "" {
		http.Error(w, `missing query parameters "sport" and "bucket"`, http.StatusBadRequest)
		return
	}

	matches := s.store.Get(sport, models.Bucket(bucket))
	writeJSON(w, map[string]any{
		"sport":   sport,
		"bucket":  bucket,
		"count":   len(matches),
		"matches": matches,
	})
}

// handleResolve resolves one price against the latest snapshot.
// GET /resolve?sport=football&match=2301557&category=handicap&scope=full&side=home&line=0/0.5
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sport := strings.TrimSpace(q.Get("sport"))
	matchID := strings.TrimSpace(q.Get("match"))
	if matchID == "" {
		http.Error(w, `missing query parameter "match"`, http.StatusBadRequest)
		return
	}

	req := models.SelectionRequest{
		Category: models.Category(q.Get("category")),
		Scope:    models.Scope(q.Get("scope")),
		Side:     models.Side(q.Get("side")),
		Line:     strings.TrimSpace(q.Get("line")),
	}
	if idx := q.Get("index"); idx != "" {
		n, err := strconv.Atoi(idx)
		if err != nil {
			http.Error(w, `invalid "index"`, http.StatusBadRequest)
			return
		}
		req.Index = n
		req.HasIndex = true
	}

	snap, ok := s.store.Find(sport, matchID)
	if !ok {
		writeJSON(w, map[string]any{"found": false, "reason": "match not on board"})
		return
	}

	state := matchstate.Classify(&snap)
	sel, ok := market.Resolve(&snap, req)
	if !ok {
		writeJSON(w, map[string]any{
			"found":  false,
			"state":  state.String(),
			"reason": "line not on board",
		})
		return
	}

	writeJSON(w, map[string]any{
		"found":     true,
		"match_id":  snap.MatchID,
		"state":     state.String(),
		"selection": sel,
	})
}

// handleSelection runs the account selection for one intended wager.
// GET /selection?user=1&match=2301557&limit=5
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "selection engine not available", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	userID, err := strconv.ParseInt(q.Get("user"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, `missing or invalid query parameter "user"`, http.StatusBadRequest)
		return
	}

	limit := s.defaultLimit
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			http.Error(w, `invalid "limit"`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	result, err := s.engine.Select(r.Context(), userID, strings.TrimSpace(q.Get("match")), limit)
	if err != nil {
		slog.Error("Selection failed", "user_id", userID, "error", err)
		http.Error(w, "selection failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
