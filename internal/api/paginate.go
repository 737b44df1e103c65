package api

import (
	"encoding/base64"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// parsePagination extracts cursor and limit from query parameters.
// limit defaults to 50 and is silently capped at 200.
func parsePagination(r *http.Request) (cursor string, limit int) {
	cursor = r.URL.Query().Get("cursor")
	limit = defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return cursor, min(limit, maxLimit)
}

// encodeCursor makes an opaque cursor from the id of the last link on a page.
func encodeCursor(id string) string {
	return base64.URLEncoding.EncodeToString([]byte(id))
}

// decodeCursor returns the link id in cursor, or "" if it is empty or invalid.
func decodeCursor(cursor string) string {
	if cursor == "" {
		return ""
	}
	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return ""
	}
	return string(b)
}
