package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Action names a backend operation
type Action string

const (
	ActionUpload Action = "upload"
	ActionUpdate Action = "update"
	ActionQuery  Action = "query"
)

// Failed is the generic message shown when the backend gives no error text
func (a Action) Failed() string {
	switch a {
	case ActionUpload:
		return "Upload failed"
	case ActionUpdate:
		return "Update failed"
	default:
		return "Query failed"
	}
}

func (a Action) succeeded() string {
	switch a {
	case ActionUpload:
		return "Upload succeeded"
	case ActionUpdate:
		return "Update succeeded"
	default:
		return "Query succeeded"
	}
}

// Kind tags a Result
type Kind int

const (
	KindSuccess Kind = iota
	// KindInputError means the request never left the client.
	KindInputError
	KindBackendError
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindInputError:
		return "input_error"
	case KindBackendError:
		return "backend_error"
	case KindTransportError:
		return "transport_error"
	}
	return "unknown"
}

// Record is the backend's association between a user id and a stored hash.
// The ledger record written by the backend uses "hash"; the query contract
// names it "hashValue". Both are accepted.
type Record struct {
	UserID     string `json:"userId"`
	HashValue  string `json:"hashValue,omitempty"`
	Hash       string `json:"hash,omitempty"`
	FileName   string `json:"filename,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// Digest returns the stored hash, whichever field carried it
func (r Record) Digest() string {
	if r.HashValue != "" {
		return r.HashValue
	}
	return r.Hash
}

// Result is the outcome of one backend action.
type Result struct {
	Action     Action
	Kind       Kind
	StatusCode int
	Message    string
	// Record is set for a successful query, and for an upload or update
	// when the backend echoed its stored metadata.
	Record *Record
	// LocalHash is the hash of the bytes sent, for upload and update.
	LocalHash string
	// Mismatch is set when the backend echoed a hash different from LocalHash.
	Mismatch bool
	Err      error
}

// OK reports whether the backend accepted the action
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// ackBody is the success schema of /upload and /update
type ackBody struct {
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// errorBody is the failure schema of every endpoint
type errorBody struct {
	Error string `json:"error"`
}

func transportFailure(action Action, err error) Result {
	return Result{
		Action:  action,
		Kind:    KindTransportError,
		Message: fmt.Sprintf("Error: %v", err),
		Err:     err,
	}
}

func inputFailure(action Action, err error) Result {
	return Result{
		Action:  action,
		Kind:    KindInputError,
		Message: err.Error(),
		Err:     err,
	}
}

// decodeFailure maps a non-200 body onto a backend error result
func decodeFailure(action Action, status int, body []byte) Result {
	res := Result{Action: action, Kind: KindBackendError, StatusCode: status, Message: action.Failed()}
	var e errorBody
	if err := json.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Error) != "" {
		res.Message = e.Error
	}
	return res
}

// decodeAck parses the 200 body of /upload or /update
func decodeAck(action Action, status int, body []byte) Result {
	var ack ackBody
	if err := json.Unmarshal(body, &ack); err != nil {
		return Result{Action: action, Kind: KindBackendError, StatusCode: status, Message: action.Failed(), Err: fmt.Errorf("invalid response body: %w", err)}
	}
	res := Result{Action: action, Kind: KindSuccess, StatusCode: status, Message: ack.Message}
	if res.Message == "" {
		res.Message = action.succeeded()
	}
	if rec, ok := decodeMetadata(ack.Metadata); ok {
		res.Record = rec
	}
	return res
}

// decodeMetadata accepts metadata either as an object or as a JSON string
// holding an object.
func decodeMetadata(raw json.RawMessage) (*Record, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		raw = []byte(s)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// decodeRecord parses the 200 body of /query/{userId}
func decodeRecord(status int, body []byte) Result {
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Result{Action: ActionQuery, Kind: KindBackendError, StatusCode: status, Message: ActionQuery.Failed(), Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return Result{
		Action:     ActionQuery,
		Kind:       KindSuccess,
		StatusCode: status,
		Message:    fmt.Sprintf("User ID: %s\nHash: %s", rec.UserID, rec.Digest()),
		Record:     &rec,
	}
}
