package clients

import "time"

// Client is a remote agent known to the server. A client starts out pending
// and cannot authenticate until an operator approves it.
type Client struct {
	ID         int64
	ClientID   string
	Name       string
	Hostname   string
	PublicKey  string
	PrivateKey string
	Pending    bool
	Token      string
	CreatedAt  time.Time
}
