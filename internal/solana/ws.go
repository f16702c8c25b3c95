package solana

// LogSource is one live stream of log notifications for a single program.
type LogSource interface {
	// Notifications returns the stream channel. The channel is closed when
	// the source is closed.
	Notifications() <-chan LogNotification

	// Close tears down the connection and closes the notification channel.
	Close() error
}

// LogsFilter selects which transactions the subscription delivers.
type LogsFilter struct {
	// Mention filters logs that mention this program ID. Solana allows a
	// single key per logsSubscribe; one stream serves one program.
	Mention string

	// Commitment level for the subscription. Empty means "finalized".
	Commitment string
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}

	// Program is the filter mention that produced this notification.
	Program string
}
