package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/assets"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/vars"
)

const maxHistoryLimit = 1000

// handleIndex serves the landing page (landing.min.html).
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	content, err := assets.ReadFile("landing.min.html")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(content)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion returns the build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

// handleStatus queries every Minecraft server named in ?address=a,b and returns
// one result per address, keyed by the address as given.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.serveQuery(w, r, models.KindMinecraft, s.minecraft)
}

// handleA2S is handleStatus for Source engine servers.
func (s *Server) handleA2S(w http.ResponseWriter, r *http.Request) {
	s.serveQuery(w, r, models.KindA2S, s.a2s)
}

func (s *Server) serveQuery(w http.ResponseWriter, r *http.Request, kind string, q game.Querier) {
	var addresses []string
	for _, v := range r.URL.Query()["address"] {
		addresses = append(addresses, game.SplitAddresses(v)...)
	}

	if len(addresses) == 0 {
		writeError(w, http.StatusBadRequest, "No addresses provided")
		return
	}
	if len(addresses) > s.maxAddresses {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many addresses, at most %d allowed", s.maxAddresses))
		return
	}

	checkedAt := time.Now()
	results := game.QueryAll(r.Context(), addresses, q)

	for addr, res := range results {
		if res.Err != nil {
			log.Debug().
				Err(res.Err).
				Str("kind", kind).
				Str("address", addr).
				Str("error_kind", game.KindOf(res.Err).String()).
				Msg("Server query failed")
		}
		s.enqueueHistory(historyJob{Address: addr, Kind: kind, Result: res, CheckedAt: checkedAt})
	}

	writeJSON(w, http.StatusOK, results)
}

// handleHistory returns stored query outcomes, newest first.
// Query params: ?address=mc.example.com&limit=50
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "History is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.storage.GetHistory(r.Context(), r.URL.Query().Get("address"), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch history")
		writeError(w, http.StatusInternalServerError, "Database Error")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
