package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// MaxBodyBytes caps JSON request bodies
const MaxBodyBytes = 1 << 20

// ParseJSON decodes a single JSON value from the request body
func ParseJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes a 400 on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ReadBody reads the raw request body, up to MaxBodyBytes
func ReadBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes)
	}
	return data, nil
}

// ParsePathInt extracts and parses an integer path parameter
func ParsePathInt(r *http.Request, key string) (int, error) {
	str, err := ParsePathString(r, key)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathIntOrError extracts an integer path parameter and writes a 400 on failure
func ParsePathIntOrError(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	val, err := ParsePathInt(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParseQueryBool reports whether a query parameter is "true" or "1"
func ParseQueryBool(r *http.Request, key string) bool {
	str := strings.ToLower(r.URL.Query().Get(key))
	return str == "true" || str == "1"
}
