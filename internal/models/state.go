// Package models defines state management structures for GoalPipe flows.
package models

import "time"

// Conversation represents the current position of a user in a dialogue flow.
// Scratch holds values collected so far; it is discarded when the flow ends.
type Conversation struct {
	UserID    string             `json:"user_id"`
	Flow      FlowType           `json:"flow"`
	State     StateType          `json:"state"`
	Scratch   map[DataKey]string `json:"scratch,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Active reports whether the conversation is waiting for input.
func (c *Conversation) Active() bool {
	return c != nil && c.Flow != "" && c.State != "" && c.State != StateDone
}

// Clone returns a copy with its own scratch map.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Scratch = make(map[DataKey]string, len(c.Scratch))
	for k, v := range c.Scratch {
		out.Scratch[k] = v
	}
	return &out
}

// Message is one inbound chat message, already split into command and arguments.
// Command is empty for free text.
type Message struct {
	UserID  string   `json:"user_id"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Text    string   `json:"text"`
}

// IsCommand reports whether the message carried a slash command.
func (m Message) IsCommand() bool {
	return m.Command != ""
}

// NextStep tells the transport whether a dialogue is still running after a reply.
type NextStep string

const (
	// NextContinue means a dialogue is active and waits for more input.
	NextContinue NextStep = "continue"
	// NextEnd means a dialogue has just ended.
	NextEnd NextStep = "end"
	// NextNone means no dialogue was involved.
	NextNone NextStep = "none"
)

// Reply is the engine's answer to a Message. Text may be empty.
type Reply struct {
	Text string   `json:"text"`
	Next NextStep `json:"next"`
}
