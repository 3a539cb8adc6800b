package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StripFences removes a markdown code fence wrapper (```json ... ```) that
// some models emit around an application/json response.
func StripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line ("json", "JSON", ...)
		if tag := strings.TrimSpace(s[:i]); tag == "" || len(tag) <= 8 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// UnmarshalRaw decodes an LLM JSON payload into v with best effort:
// direct decode first, then after stripping code fences, then after
// unwrapping a double-encoded JSON string.
func UnmarshalRaw(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	stripped := StripFences(raw)
	if err := json.Unmarshal(stripped, v); err == nil {
		return nil
	}
	// Some responses arrive as a JSON string containing JSON.
	var s string
	if err := json.Unmarshal(stripped, &s); err == nil {
		return json.Unmarshal([]byte(s), v)
	}
	return json.Unmarshal(stripped, v)
}

// MarshalNoEscape encodes v without escaping <, >, & into < etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
