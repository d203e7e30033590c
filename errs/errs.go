package errs

import (
	"encoding/json"
	"strings"
)

// Remote is the decoded shape of an error payload returned by the hosted
// backend. The backend is not consistent: some surfaces return
// {"message": ...}, some {"error": "..."}, some {"error": {"message": ...}},
// and some an empty object. Every variant decodes into this one struct so
// callers never probe properties ad hoc.
type Remote struct {
	Code       string
	Message    string
	ErrorText  string // "error" when it is a plain string
	NestedMsg  string // "error".message when "error" is an object
	Details    string
	Hint       string
	StatusCode int
}

func (r *Remote) Error() string {
	if r.Message != "" {
		return r.Message
	}
	if r.ErrorText != "" {
		return r.ErrorText
	}
	if r.NestedMsg != "" {
		return r.NestedMsg
	}
	return "remote store error"
}

// DecodeRemote parses an error response body. It never fails: a body that
// is not JSON, or JSON with none of the known fields, yields an empty
// Remote, which Normalize later replaces with fallback text.
func DecodeRemote(statusCode int, body []byte) *Remote {
	var raw struct {
		Code             string          `json:"code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Details          string          `json:"details"`
		Hint             string          `json:"hint"`
	}
	remote := &Remote{StatusCode: statusCode}
	if err := json.Unmarshal(body, &raw); err != nil {
		remote.Message = strings.TrimSpace(string(body))
		return remote
	}

	remote.Code = raw.Code
	remote.Message = raw.Message
	if remote.Message == "" {
		remote.Message = raw.Msg
	}
	remote.Details = raw.Details
	remote.Hint = raw.Hint

	if len(raw.Error) > 0 {
		var s string
		if err := json.Unmarshal(raw.Error, &s); err == nil {
			remote.ErrorText = s
			if remote.ErrorText != "" && raw.ErrorDescription != "" {
				// GoTrue pairs "error" with a human description.
				remote.NestedMsg = raw.ErrorDescription
			}
		} else {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(raw.Error, &nested); err == nil {
				remote.NestedMsg = nested.Message
			}
		}
	}
	if remote.ErrorText == "" && raw.ErrorDescription != "" && remote.Message == "" {
		remote.Message = raw.ErrorDescription
	}
	return remote
}

// Normalize maps any error payload to a non-empty human readable message.
// Resolution order follows the shape of the payload; fallbackMsg is the
// last resort and is returned verbatim for nil, blank and empty payloads.
func Normalize(raw any, fallbackMsg string) string {
	message := fallbackMsg

	switch v := raw.(type) {
	case nil:
	case *Remote:
		if v != nil {
			message = firstNonBlank(v.Message, v.ErrorText, v.NestedMsg, v.Details, v.Hint)
		}
	case Remote:
		message = firstNonBlank(v.Message, v.ErrorText, v.NestedMsg, v.Details, v.Hint)
	case error:
		message = strings.TrimSpace(v.Error())
	case string:
		message = strings.TrimSpace(v)
	}

	if strings.TrimSpace(message) == "" {
		return fallbackMsg
	}
	return message
}

func firstNonBlank(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}
