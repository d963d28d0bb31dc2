// ABOUTME: Message transport abstraction and WebSocket implementation
// ABOUTME: The session owns exactly one transport for its whole lifetime
package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Message kinds carried by a Transport. Values match the WebSocket frame
// types so *websocket.Conn satisfies Transport directly.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Transport is a message-oriented bidirectional connection. Reads block until
// a message arrives or the connection fails; a failed read is terminal.
// Implementations need not be safe for concurrent writes; the session
// serializes all access.
type Transport interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a Transport. Injected in tests; production sessions use
// DialWebSocket.
type DialFunc func(ctx context.Context) (Transport, error)

// DialWebSocket returns a DialFunc that connects to the generation service
// endpoint, passing the API key as a header.
func DialWebSocket(endpoint, apiKey string) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		header := http.Header{}
		if apiKey != "" {
			header.Set("Authorization", "Bearer "+apiKey)
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", endpoint, err)
		}
		return conn, nil
	}
}
