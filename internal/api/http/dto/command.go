package dto

import "time"

// CommandInfo is the wire form of a delivered command. read_at is an internal
// delivery marker and is never exposed.
type CommandInfo struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type CommandsResponse struct {
	Commands []CommandInfo `json:"commands"`
	Count    int           `json:"count"`
}

type CreateCommandRequest struct {
	Type    string `json:"type" binding:"required"`
	Payload string `json:"payload"`
}
