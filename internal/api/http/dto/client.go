package dto

import "time"

type RegisterClientRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=255"`
	Hostname string `json:"hostname" binding:"required,min=3,max=255"`
	ClientID string `json:"client_id" binding:"required,min=3,max=36"`
}

type RegisterClientResponse struct {
	Token string `json:"token"`
}

type UpdateKeysRequest struct {
	PublicKey  string `json:"public_key" binding:"required,max=500"`
	PrivateKey string `json:"private_key" binding:"required,max=2000"`
}

type ClientInfo struct {
	ID        int64     `json:"id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Hostname  string    `json:"hostname"`
	Pending   bool      `json:"pending"`
	CreatedAt time.Time `json:"created_at"`
}

type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
	Count   int          `json:"count"`
}
