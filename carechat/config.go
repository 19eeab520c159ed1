package carechat

import "time"

// Config controls how the SDK connects and which local policies apply.
type Config struct {
	URL   string // WebSocket gateway URL
	Token string // bearer token for the hello handshake
	User  string // id of the authenticated user, used for self-echo reconciliation

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// Reconnect backoff: delay starts at ReconnectBase, doubles per attempt,
	// never exceeds ReconnectMax. Attempts are unlimited.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	JoinTimeout time.Duration // bound on join_room acknowledgement
	AckTimeout  time.Duration // bound on send_message acknowledgement

	TypingIdle   time.Duration // keystroke idle window before typing:false
	TypingExpiry time.Duration // safety eviction of stuck remote typists

	MaxAttachmentBytes int64
	AllowedMIMETypes   []string
}

// DefaultConfig returns sensible defaults. Set a timeout to 0 to disable it.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:   10 * time.Second,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       10 * time.Second,
		ReconnectBase:      time.Second,
		ReconnectMax:       10 * time.Second,
		JoinTimeout:        5 * time.Second,
		AckTimeout:         5 * time.Second,
		TypingIdle:         time.Second,
		TypingExpiry:       7 * time.Second,
		MaxAttachmentBytes: 10 << 20,
		AllowedMIMETypes: []string{
			"image/jpeg",
			"image/png",
			"image/gif",
			"image/webp",
			"application/pdf",
			"text/plain",
		},
	}
}
