// Package http provides the HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// the caller identity header, JSON or form bodies and the time entry
// payload.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"timesheets/internal/core"
)

// HeaderUserID carries the caller identity injected by the upstream proxy.
const HeaderUserID = "X-User-ID"

// maxBodyBytes bounds request bodies. The largest legitimate body is a bulk
// id list.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// InputError is a malformed request. It maps to 400 Bad Request.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func badInput(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// callerID extracts the caller id header.
func callerID(r *http.Request) string {
	return sanitizeInput(r.Header.Get(HeaderUserID))
}

// RequestBodyParser handles JSON and form-encoded request bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]json.RawMessage
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, bounded by maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = &InputError{Msg: errBodyTooLarge.Error()}
	}
	return p
}

// Parse parses the body as a JSON object or as form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(strings.TrimSpace(string(p.body))) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]json.RawMessage)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = badInput("invalid JSON body: %v", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = badInput("invalid form body: %v", p.err)
	}
	return p.err
}

// Has reports whether key was sent.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a sanitized string value.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return ""
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return ""
		}
		return sanitizeInput(stringValue(v))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Bool returns a boolean value. Missing keys yield def.
func (p *RequestBodyParser) Bool(key string, def bool) (bool, error) {
	if !p.Has(key) {
		return def, nil
	}
	b, err := strconv.ParseBool(p.Get(key))
	if err != nil {
		return def, badInput("%s must be true or false", key)
	}
	return b, nil
}

// Strings returns a list value: a JSON array of strings or a repeated form
// key (with or without trailing brackets).
func (p *RequestBodyParser) Strings(key string) ([]string, error) {
	var out []string
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return nil, nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, badInput("%s must be a list of strings", key)
		}
	} else if p.formData != nil {
		out = append(append([]string(nil), p.formData[key]...), p.formData[key+"[]"]...)
	}

	cleaned := make([]string, 0, len(out))
	for _, s := range out {
		if s = sanitizeInput(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned, nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseEntry builds the edited entry from a request body. References are
// sent as ids; an empty id clears the reference.
func parseEntry(id string, p *RequestBodyParser) (core.TimeEntry, error) {
	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return core.TimeEntry{}, badInput("invalid date %q: expected YYYY-MM-DD", p.Get("date"))
	}
	hours, err := core.ParseHours(p.Get("hours"))
	if err != nil {
		return core.TimeEntry{}, err
	}
	billable, err := p.Bool("isBillable", false)
	if err != nil {
		return core.TimeEntry{}, err
	}

	return core.TimeEntry{
		ID:         id,
		Date:       date,
		Hours:      hours,
		Client:     refOf(p.Get("clientId")),
		Project:    refOf(p.Get("projectId")),
		Task:       refOf(p.Get("taskId")),
		Notes:      p.Get("notes"),
		IsBillable: billable,
	}, nil
}

func refOf(id string) *core.Ref {
	if id == "" {
		return nil
	}
	return &core.Ref{ID: id}
}
