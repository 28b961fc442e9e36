package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"notably/internal/utils"
)

// EncodeState builds an OAuth state string: a random part for uniqueness
// plus base64-encoded JSON metadata (e.g. the post-login redirect target).
func EncodeState(data map[string]string) (string, error) {
	randomPart, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal state data: %w", err)
	}
	return randomPart + "." + base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeState recovers the metadata from a state string.
func DecodeState(state string) (map[string]string, error) {
	_, payloadPart, ok := strings.Cut(state, ".")
	if !ok {
		return nil, fmt.Errorf("invalid state format")
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("decode state payload: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("unmarshal state JSON: %w", err)
	}
	return data, nil
}
