package bridge

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

// greedyObject spans the first '{' to the last '}' of the output.
var greedyObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the last complete top-level JSON object in out.
// Diagnostic text around and between objects is ignored, as are balanced
// brace groups that are not JSON. Objects nested inside a block that fails
// to decode are never promoted to the top level. When no object decodes, or
// a block is left unterminated, the span from the first '{' to the last '}'
// is parsed and its error returned. found is false when out holds nothing
// JSON-shaped.
func ExtractJSON(out string) (payload interface{}, found bool, err error) {
	for i := 0; i < len(out); {
		j := strings.IndexByte(out[i:], '{')
		if j < 0 {
			break
		}
		start := i + j

		dec := json.NewDecoder(strings.NewReader(out[start:]))
		var v map[string]interface{}
		if dec.Decode(&v) == nil {
			payload, found = v, true
			i = start + int(dec.InputOffset())
			continue
		}

		end, closed := braceSpanEnd(out, start)
		if !closed {
			// truncated output; whatever decoded earlier is not the result
			found = false
			break
		}
		i = end
	}
	if found {
		return payload, true, nil
	}

	span := greedyObject.FindString(out)
	if span == "" {
		return nil, false, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// braceSpanEnd returns the offset just past the '}' that closes the '{' at
// start. Braces inside double-quoted strings do not count.
func braceSpanEnd(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for k := start; k < len(s); k++ {
		c := s[k]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return k + 1, true
			}
		}
	}
	return len(s), false
}

// resultFromPayload maps the script's JSON object onto an OperationResult.
// A missing success field counts as success since the process exited 0.
func resultFromPayload(payload interface{}) *model.OperationResult {
	result := &model.OperationResult{Success: true, Data: payload}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return result
	}
	if success, ok := obj["success"].(bool); ok {
		result.Success = success
	}
	if !result.Success {
		switch {
		case stringField(obj, "error") != "":
			result.Error = stringField(obj, "error")
		case stringField(obj, "message") != "":
			result.Error = stringField(obj, "message")
		default:
			result.Error = "external process reported failure"
		}
	}
	return result
}

func stringField(obj map[string]interface{}, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func excerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit]
}

func parseFailure(err error) *model.OperationResult {
	return model.FailureMessage(fmt.Sprintf("failed to parse process output: %v", err), ErrMalformedOutput)
}
