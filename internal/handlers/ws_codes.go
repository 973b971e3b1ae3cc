// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes.
const (
	BadSubprotocolError = 3000 // Client connected without the crystal subprotocol.
	SlowConsumerError   = 3001 // Outbound queue overflowed; client should reconnect and resync.
)
