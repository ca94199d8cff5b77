package draft

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leaplineadmin/brevy-sub002/internal/cvdata"
)

// Payload is the staged builder state an anonymous visitor submits.
type Payload struct {
	Title       string          `json:"title"`
	Template    string          `json:"template"`
	AccentColor string          `json:"accent_color"`
	Kind        string          `json:"kind"`
	Language    string          `json:"language"`
	Content     json.RawMessage `json:"content"`
}

// canonicalPayload fixes the field order and content encoding hashed by
// ContentHash. Resume content goes through cvdata.Decode + Canonical so two
// clients serializing the same data with different key order or whitespace
// produce the same hash.
type canonicalPayload struct {
	Title       string          `json:"title"`
	Template    string          `json:"template"`
	AccentColor string          `json:"accent_color"`
	Kind        string          `json:"kind"`
	Language    string          `json:"language"`
	Content     json.RawMessage `json:"content"`
}

// ContentHash computes the stable sha256 identity of a draft payload.
func ContentHash(p Payload) (string, error) {
	content, err := cvdata.Decode(p.Content)
	if err != nil {
		return "", err
	}
	canonical, err := cvdata.Canonical(content)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(canonicalPayload{
		Title:       strings.TrimSpace(p.Title),
		Template:    strings.TrimSpace(p.Template),
		AccentColor: strings.TrimSpace(p.AccentColor),
		Kind:        strings.TrimSpace(p.Kind),
		Language:    strings.TrimSpace(p.Language),
		Content:     canonical,
	})
	if err != nil {
		return "", fmt.Errorf("marshal canonical payload: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
