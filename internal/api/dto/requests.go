// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ListMessagesRequest represents the query parameters for listing the
// messages of a session.
type ListMessagesRequest struct {
	Limit  int64  `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int64  `form:"offset" binding:"omitempty,min=0"`
	Order  string `form:"order" binding:"omitempty,oneof=asc desc"`
}

// ListSessionsRequest represents the query parameters for listing the
// caller's sessions.
type ListSessionsRequest struct {
	Limit int64 `form:"limit" binding:"omitempty,min=1,max=100"`
}
