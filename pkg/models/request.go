package models

import "encoding/json"

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the backend's native chat/generate request shape. Clients send
// this verbatim; the gateway classifies, enriches, and forwards a filtered
// subset of it upstream (spec §3's Request invariant: unknown fields are
// never silently forwarded).
type Request struct {
	Model    string    `json:"model"`
	Prompt   string    `json:"prompt,omitempty"`
	Messages []Message `json:"messages,omitempty"`

	Template  json.RawMessage `json:"template,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
	KeepAlive json.RawMessage `json:"keep_alive,omitempty"`
	Options   json.RawMessage `json:"options,omitempty"`

	// StreamRaw carries the raw "stream" field for round-tripping the
	// client's literal value through UnmarshalJSON.
	StreamRaw bool
	StreamSet bool
}

// UnmarshalJSON implements custom decoding so the Stream field's absence
// (defaulting to true, spec §3) is distinguishable from an explicit false.
func (r *Request) UnmarshalJSON(data []byte) error {
	type alias Request
	aux := struct {
		Stream *bool `json:"stream"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Stream != nil {
		r.StreamSet = true
		r.StreamRaw = *aux.Stream
	} else {
		r.StreamSet = false
		r.StreamRaw = true
	}
	return nil
}

// WantsStream reports whether the client asked for a streamed response.
// Absent the field, the backend's native default (true) applies.
func (r *Request) WantsStream() bool {
	if !r.StreamSet {
		return true
	}
	return r.StreamRaw
}

// LastUserMessage returns the content of the last user-role message, or the
// raw prompt when the request uses the prompt form. Returns "" and false
// when neither is present (spec §4.3: classifier falls back to defaults).
func (r *Request) LastUserMessage() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content, true
		}
	}
	if r.Prompt != "" {
		return r.Prompt, true
	}
	return "", false
}

// UpstreamWhitelist lists the request keys forwarded upstream (spec §4.6
// step 2), including "model" and "messages"/"prompt". The Streaming Proxy
// builds its payload field by field and does not read this list.
var UpstreamWhitelist = []string{"model", "messages", "prompt", "stream", "options", "template", "context", "keep_alive"}
