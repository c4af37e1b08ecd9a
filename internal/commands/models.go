package commands

import (
	"fmt"
	"time"
)

// CommandType is the closed set of command kinds a client understands.
type CommandType string

const (
	TypeCommand CommandType = "command"
	TypeConfig  CommandType = "config"
	TypeStatus  CommandType = "status"
)

func ParseCommandType(s string) (CommandType, error) {
	switch CommandType(s) {
	case TypeCommand, TypeConfig, TypeStatus:
		return CommandType(s), nil
	}
	return "", fmt.Errorf("unknown command type: %q", s)
}

// Command is a unit of work queued for a client. ReadAt is the delivery
// marker: nil until the owning client has fetched the command.
type Command struct {
	ID        int64
	ClientRef int64
	Type      CommandType
	Payload   string
	CreatedAt time.Time
	ReadAt    *time.Time
}
