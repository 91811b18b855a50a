// internal/handlers/ws_codes.go
package handlers

// Custom websocket close codes used by the lobby and match handlers,
// more specific than the standard set.
const (
	BadSubprotocolError   = 3000 // unsupported subprotocol
	InvalidAuthTokenError = 3001 // auth token invalid or expired
	InvalidUserIDError    = 3002 // user id in token was malformed
	InvalidLobbyIDError   = 3003 // target lobby does not exist
)
