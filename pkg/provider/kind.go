package provider

// Kind identifies a category of filesystem change.
type Kind uint8

const (
	// KindCreated indicates a file that appeared between two polls.
	KindCreated Kind = iota
	// KindChanged indicates a file whose modification time changed between two
	// polls.
	KindChanged
	// KindDeleted indicates a file that disappeared between two polls.
	KindDeleted
)

// kinds lists all change kinds in dispatch order.
var kinds = [...]Kind{KindCreated, KindChanged, KindDeleted}

// String provides a human-readable representation of a change kind.
func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindChanged:
		return "changed"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Message describes a single detected change. It is created fresh for each
// change and must not be modified after dispatch.
type Message struct {
	// Name is the canonical absolute path of the file.
	Name string
	// Content is the file's contents decoded as text. It is empty for deleted
	// files and for files that couldn't be read.
	Content string
	// ContentLength is the number of raw bytes read.
	ContentLength int64
}

// Handler is a change notification callback. Handlers are invoked
// synchronously on the consumer Goroutine of the pipeline that detected the
// change, so a handler may be invoked concurrently by pipelines for different
// directories.
type Handler func(*Message)

// ErrorHandler is a failure notification callback. It may be invoked
// concurrently by different pipelines.
type ErrorHandler func(error)

// Handlers are the callbacks registered with a provider. Change kinds without
// a handler are inactive: they allocate no queues and run no workers.
type Handlers struct {
	// Created receives creation notifications.
	Created Handler
	// Changed receives modification notifications.
	Changed Handler
	// Deleted receives deletion notifications.
	Deleted Handler
	// Error receives per-directory failures and handler panics.
	Error ErrorHandler
}

// forKind returns the handler registered for the specified kind.
func (h Handlers) forKind(kind Kind) Handler {
	switch kind {
	case KindCreated:
		return h.Created
	case KindChanged:
		return h.Changed
	case KindDeleted:
		return h.Deleted
	default:
		return nil
	}
}
