package wire

import "encoding/json"

// ProtocolVersion is the framed-JSON protocol version spoken by this build.
// The request's v field must match or the daemon answers with a Protocol error.
const ProtocolVersion = 1

// ErrorKind tags an error response with one kind from a closed set. The set
// is part of the wire contract; clients map kinds to exit codes.
type ErrorKind string

const (
	KindModelLoad ErrorKind = "ModelLoad"
	KindProtocol  ErrorKind = "Protocol"
	KindIo        ErrorKind = "Io"
	KindTimeout   ErrorKind = "Timeout"
	KindUnknown   ErrorKind = "Unknown"
)

// PromptRequest is the single request a client sends per connection.
type PromptRequest struct {
	// Protocol version advertised by the client. Currently always 1.
	V int `json:"v"`
	// Prompt text to generate a completion for.
	Prompt string `json:"prompt"`
	// Whether to stream tokens. Reserved; the daemon always streams.
	Stream bool `json:"stream"`
}

// TokenResponse carries one generated token. A nil Token with EOS set marks
// the end of a successful stream; every earlier frame has a present token
// and EOS false.
type TokenResponse struct {
	Token *string `json:"token"`
	EOS   bool    `json:"eos"`
}

// ErrorResponse may replace any token response when the daemon fails
// mid-request. The daemon closes the connection after writing one.
type ErrorResponse struct {
	Error     string    `json:"error"`
	ErrorType ErrorKind `json:"error_type"`
}

// DecodeResponse splits a response frame into its token or error form.
// Error frames are recognized structurally, by the presence of the error
// fields, so exactly one of the two results is non-nil on success.
func DecodeResponse(data []byte) (*TokenResponse, *ErrorResponse, error) {
	var sniff struct {
		Error     *string `json:"error"`
		ErrorType string  `json:"error_type"`
	}
	if err := json.Unmarshal(data, &sniff); err != nil {
		return nil, nil, err
	}
	if sniff.Error != nil || sniff.ErrorType != "" {
		var er ErrorResponse
		if err := json.Unmarshal(data, &er); err != nil {
			return nil, nil, err
		}
		return nil, &er, nil
	}
	var tr TokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, nil, err
	}
	return &tr, nil, nil
}
