package api

import "time"

// LinkRequest is the request body for POST /api/v1/links and PUT /api/v1/links/{id}.
type LinkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// LinkResponse is the JSON representation of a single link. Field names
// follow the persisted record.
type LinkResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}

// LinkListResponse is the paginated response for GET /api/v1/links.
type LinkListResponse struct {
	Links      []LinkResponse `json:"links"`
	NextCursor *string        `json:"next_cursor"`
}

// ResolveResponse is the response for GET /api/v1/resolve.
type ResolveResponse struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// ErrorResponse documents the error body written by writeError.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
