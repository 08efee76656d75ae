// Package models defines the core data structures for GoalPipe.
//
// It includes the per-user record, dialogue state, chat messages and delivery receipts,
// which are shared across modules.
package models

import (
	"errors"
	"strings"
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrEmptyRecipient = errors.New("recipient cannot be empty")
	ErrUserNotFound   = errors.New("user not found")
	ErrNoPendingFood  = errors.New("no pending food")
)

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// Receipt records the delivery status of an outgoing message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming chat message from a user.
//
// From is the address replies are sent to (chat ID, JID or phone number). UserID
// identifies whose record the message belongs to; transports without a separate
// user identity set it equal to From.
type Response struct {
	From   string `json:"from"`
	UserID string `json:"user_id"`
	Body   string `json:"body"`
	Time   int64  `json:"time"`
}

// Owner returns the user the response belongs to.
func (r Response) Owner() string {
	if id := strings.TrimSpace(r.UserID); id != "" {
		return id
	}
	return r.From
}

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
