package messaging

import (
	"strings"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// ParseCommand splits chat text of the form "/command[@botname] arg1 arg2".
// ok is false when text is not a command.
func ParseCommand(text string) (command string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	command = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}
	return strings.ToLower(command), fields[1:], true
}

// NewMessage builds the engine input for a chat message.
func NewMessage(userID, text string) models.Message {
	msg := models.Message{UserID: userID, Text: text}
	if cmd, args, ok := ParseCommand(text); ok {
		msg.Command = cmd
		msg.Args = args
	}
	return msg
}
