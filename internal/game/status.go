package game

import (
	"bytes"
	"encoding/json"

	"github.com/Tnze/go-mc/chat"
	"github.com/woozymasta/mcstatus/internal/models"
)

// statusDocument is the JSON payload of a status response.
type statusDocument struct {
	Version *struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players *struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     string          `json:"favicon"`
}

// ParseStatus decodes a status document into a success record.
// A document without a players object is rejected with ErrMissingPlayers.
func ParseStatus(text string) (*models.Status, error) {
	var doc statusDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	if doc.Players == nil {
		return nil, ErrMissingPlayers
	}

	st := &models.Status{
		MaxPlayers:    doc.Players.Max,
		OnlinePlayers: doc.Players.Online,
		Description:   doc.Description,
		MOTD:          PlainText(doc.Description),
		Favicon:       doc.Favicon,
	}
	if doc.Version != nil {
		st.Version = doc.Version.Name
		st.Protocol = doc.Version.Protocol
	}

	return st, nil
}

// PlainText flattens a description (string or chat component) into unformatted text.
// Anything that is not a chat message renders as an empty string.
func PlainText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var msg chat.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ""
	}

	return msg.ClearString()
}
