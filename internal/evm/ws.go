package evm

import "context"

// WSClient defines the log subscription interface over WebSocket.
type WSClient interface {
	// SubscribeLogs subscribes to contract logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan Log, error)

	// Close closes the WebSocket connection.
	Close() error
}
