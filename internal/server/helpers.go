package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// UnmarshalArrayParam decodes a batch array whose items are either JSON
// objects or JSON-encoded strings of objects (some MCP bridges stringify items).
// dest must be a pointer to a slice.
func UnmarshalArrayParam(raw json.RawMessage, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err == nil {
		return nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return json.Unmarshal(raw, dest)
	}

	parts := make([]json.RawMessage, len(items))
	for i, item := range items {
		parts[i] = json.RawMessage(item)
	}
	rebuilt, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	return json.Unmarshal(rebuilt, dest)
}

// QueryList splits a comma-separated query parameter, dropping blanks.
// Returns nil when the parameter is absent.
func QueryList(q url.Values, key string) []string {
	var out []string
	for _, v := range strings.Split(q.Get(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// QueryBool parses an optional boolean query parameter. An absent parameter
// yields nil so the caller's default applies. Writes a 400 on garbage.
func QueryBool(w http.ResponseWriter, q url.Values, key string) (*bool, bool) {
	v := q.Get(key)
	if v == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		WriteError(w, http.StatusBadRequest, key+" must be true or false")
		return nil, false
	}
	return &b, true
}

// QueryPositiveInt parses an optional positive integer query parameter.
func QueryPositiveInt(w http.ResponseWriter, q url.Values, key string, def int) (int, bool) {
	v := q.Get(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		WriteError(w, http.StatusBadRequest, key+" must be a positive integer")
		return 0, false
	}
	return n, true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/stocks/{symbol}/financials, calling PathParam(r, "/api/stocks/", "/financials")
// extracts the {name} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
