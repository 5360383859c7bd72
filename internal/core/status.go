package core

// ConnectionStatus is the registry-owned lifecycle state of a named
// connection. Only the registry mutates it.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// ConnectionState pairs a status with the last error detail, if any.
type ConnectionState struct {
	Name      string           `json:"name"`
	Type      string           `json:"type,omitempty"`
	Database  string           `json:"database,omitempty"`
	Status    ConnectionStatus `json:"status"`
	LastError string           `json:"last_error,omitempty"`
}
