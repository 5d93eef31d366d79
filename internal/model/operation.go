package model

import (
	"encoding/json"
	"errors"
)

// Param is a single named invocation parameter.
type Param struct {
	Key   string
	Value interface{}
}

// Params is an insertion-ordered parameter list. Nil values are dropped at
// marshalling time, not here, so callers can build lists unconditionally.
type Params []Param

// Set appends or replaces key, keeping the position of the first occurrence.
func (p Params) Set(key string, value interface{}) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Param{Key: key, Value: value})
}

// Keys returns the parameter names in order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, kv := range p {
		keys = append(keys, kv.Key)
	}
	return keys
}

// OperationRequest is one invocation unit for the process bridge.
type OperationRequest struct {
	Operation  string
	Parameters Params
}

// OperationResult is the outcome of a bridge call.
type OperationResult struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	RawMessage *string     `json:"rawMessage,omitempty"`

	cause error
}

// Failure builds an unsuccessful result from cause.
func Failure(cause error) *OperationResult {
	return &OperationResult{Success: false, Error: cause.Error(), cause: cause}
}

// FailureMessage builds an unsuccessful result with an explicit message,
// keeping cause for errors.Is checks.
func FailureMessage(msg string, cause error) *OperationResult {
	return &OperationResult{Success: false, Error: msg, cause: cause}
}

// Err returns nil for successful results and an error otherwise.
func (r *OperationResult) Err() error {
	if r == nil || r.Success {
		return nil
	}
	if r.cause != nil {
		if r.cause.Error() == r.Error {
			return r.cause
		}
		return &resultError{msg: r.Error, cause: r.cause}
	}
	return errors.New(r.Error)
}

// Decode re-marshals Data into v.
func (r *OperationResult) Decode(v interface{}) error {
	if r.Data == nil {
		return errors.New("result carries no data")
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

type resultError struct {
	msg   string
	cause error
}

func (e *resultError) Error() string { return e.msg }
func (e *resultError) Unwrap() error { return e.cause }
