package rest

import "time"

// MessageInfo represents a single message as the backend stores it.
type MessageInfo struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Content        string    `json:"content"`
	Kind           string    `json:"kind"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
	AttachmentURL  string    `json:"attachment_url,omitempty"`
	ClientTag      string    `json:"client_tag,omitempty"`
}

// HistoryResponse contains one page of messages, newest-first, with a cursor
// for older pages.
type HistoryResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
	Before   string        `json:"before,omitempty"` // cursor for the next (older) page
}

// CreateMessageRequest is the body of the message-creation fallback path.
type CreateMessageRequest struct {
	Content   string `json:"content"`
	Kind      string `json:"kind"`
	ClientTag string `json:"client_tag,omitempty"`
}

// DownloadURLResponse carries a short-lived signed URL for an attachment.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
