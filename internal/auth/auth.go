// Package auth provides marketplace API credentials and the socket
// identification payload derived from them.
package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rickgao/empire-bidder/internal/model"
)

// Credentials holds the API key used for REST requests.
type Credentials struct {
	APIKey string // API key from the marketplace account settings
}

// LoadCredentials returns credentials from an inline key, or from keyPath
// when the inline key is empty.
func LoadCredentials(apiKey, keyPath string) (*Credentials, error) {
	if apiKey != "" {
		return &Credentials{APIKey: apiKey}, nil
	}
	if keyPath == "" {
		return nil, fmt.Errorf("API key or API key path is required")
	}

	key, err := LoadAPIKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("load api key: %w", err)
	}

	return &Credentials{APIKey: key}, nil
}

// LoadAPIKey reads an API key from a file, trimming surrounding whitespace.
func LoadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", path)
	}

	return key, nil
}

// Apply sets the authentication headers on an outgoing request.
func (c *Credentials) Apply(h http.Header) {
	if c == nil || c.APIKey == "" {
		return
	}
	h.Set("Authorization", "Bearer "+c.APIKey)
}

// IdentifyPayload is emitted on the socket when the server reports the
// connection as unauthenticated.
type IdentifyPayload struct {
	UID                int64           `json:"uid"`
	Model              json.RawMessage `json:"model"`
	AuthorizationToken string          `json:"authorizationToken"`
	Signature          string          `json:"signature"`
}

// Identify builds the identify payload from the socket metadata in uc.
func Identify(uc model.UserContext) IdentifyPayload {
	userModel := uc.RawUser
	if len(userModel) == 0 {
		userModel = json.RawMessage(fmt.Sprintf(`{"id":%d,"balance":%d}`, uc.User.ID, uc.User.Balance))
	}

	return IdentifyPayload{
		UID:                uc.User.ID,
		Model:              userModel,
		AuthorizationToken: uc.SocketToken,
		Signature:          uc.SocketSignature,
	}
}
