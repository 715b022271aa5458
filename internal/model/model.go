// Package model defines the domain types used across the application.
package model

import "time"

// MediaKind identifies the attachment carried by a message.
type MediaKind int

// Supported media kinds.
const (
	MediaNone MediaKind = iota
	MediaWebPage
	MediaPhoto
	MediaDocument
	MediaUnknown
)

// String returns a short name for the kind.
func (k MediaKind) String() string {
	switch k {
	case MediaNone:
		return "none"
	case MediaWebPage:
		return "webpage"
	case MediaPhoto:
		return "photo"
	case MediaDocument:
		return "document"
	case MediaUnknown:
		return "unknown"
	}
	return "invalid"
}

// Media is the attachment of a message. Only the fields matching Kind are set.
type Media struct {
	Kind MediaKind

	// WebPage fields. Empty marks a link whose preview could not be produced.
	URL   string
	Title string
	Empty bool

	// Raw describes an Unknown attachment for logging.
	Raw string
}

// Sender identifies the original author of a forwarded message.
type Sender struct {
	Username  string
	FirstName string
	LastName  string
}

// Forward describes where a forwarded message came from.
// Sender is nil when the author is hidden; ChatTitle is nil when no origin chat is known.
type Forward struct {
	Sender    *Sender
	ChatTitle *string
}

// Message is a single chat message as seen by the exporter.
type Message struct {
	ID      int
	Date    int64
	Text    string
	Media   Media
	Forward *Forward
	Service bool
}

// Group holds all messages sharing one exact timestamp.
type Group struct {
	Date     int64
	Messages []Message
}

// Task is a formatted message group ready for rendering.
// The last element of Notes is always the deep link.
type Task struct {
	Date  int64
	Title string
	Notes []string
}

// Export is a journal record of one exported task.
type Export struct {
	ID         int64
	RunID      string
	TaskDate   int64
	Title      string
	DryRun     bool
	ExportedAt time.Time
}
