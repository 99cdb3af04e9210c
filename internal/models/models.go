// Package models defines the data structures used for API responses and database persistence.
package models

import (
	"encoding/json"
	"time"
)

// Query kinds stored in history.
const (
	KindMinecraft = "minecraft"
	KindA2S       = "a2s"
)

// Status is the success record of a single server query.
type Status struct {
	// Description is passed through as sent by the server: a JSON string or a chat component object.
	// It is left out of the output when the server sent none.
	Description json.RawMessage `json:"description,omitempty"`

	// MOTD is the plain text rendering of Description.
	MOTD string `json:"-"`

	// Version is the server's reported version name.
	Version string `json:"-"`

	// RemoteIP is the address the session actually connected to.
	RemoteIP string `json:"-"`

	// Favicon is the base64 data URI of the server icon, if any.
	Favicon string `json:"-"`

	Latency       time.Duration `json:"-"`
	Protocol      int           `json:"-"`
	MaxPlayers    int           `json:"max_players"`
	OnlinePlayers int           `json:"online_players"`
}

// Result is the outcome of a query for one address: exactly one of Status or Err is set.
type Result struct {
	Status *Status
	Err    error
}

// errorBody is the JSON shape of a failed Result.
type errorBody struct {
	Error string `json:"error"`
}

// OK reports whether the query succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Status != nil
}

// MarshalJSON renders {max_players, online_players, description} or {error}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(errorBody{Error: r.Err.Error()})
	}
	if r.Status == nil {
		return json.Marshal(errorBody{Error: "no status"})
	}

	return json.Marshal(r.Status)
}

// HistoryRecord is a single stored query outcome.
type HistoryRecord struct {
	CheckedAt   time.Time `json:"checked_at"`
	Address     string    `json:"address"`
	Kind        string    `json:"kind"`
	MOTD        string    `json:"motd"`
	Version     string    `json:"version"`
	RemoteIP    string    `json:"remote_ip"`
	CountryCode string    `json:"country_code"`
	Error       string    `json:"error,omitempty"`
	ID          int64     `json:"id"`
	LatencyMS   int64     `json:"latency_ms"`
	Players     int       `json:"players"`
	MaxPlayers  int       `json:"max_players"`
	Online      bool      `json:"online"`
}

// NewHistoryRecord converts a query result into a history record.
func NewHistoryRecord(address, kind string, res Result, checkedAt time.Time) HistoryRecord {
	rec := HistoryRecord{
		Address:   address,
		Kind:      kind,
		CheckedAt: checkedAt,
	}

	if !res.OK() {
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		return rec
	}

	st := res.Status
	rec.Online = true
	rec.Players = st.OnlinePlayers
	rec.MaxPlayers = st.MaxPlayers
	rec.MOTD = st.MOTD
	rec.Version = st.Version
	rec.RemoteIP = st.RemoteIP
	rec.LatencyMS = st.Latency.Milliseconds()

	return rec
}
