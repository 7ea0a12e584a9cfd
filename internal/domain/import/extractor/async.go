package extractor

import (
	"context"
	"errors"
)

// Message is sent from a running extraction to its caller. Exactly one of
// ContentMessage, ErrorMessage or CancelledMessage ends every extraction.
type Message interface {
	isMessage()
}

// ProgressMessage reports progress at page granularity.
type ProgressMessage struct {
	Progress
}

// ContentMessage carries the extracted text.
type ContentMessage struct {
	Content *ExtractedContent
}

// ErrorMessage carries a fatal extraction error.
type ErrorMessage struct {
	Err error
}

// CancelledMessage acknowledges a cancellation request.
type CancelledMessage struct{}

func (ProgressMessage) isMessage()  {}
func (ContentMessage) isMessage()   {}
func (ErrorMessage) isMessage()     {}
func (CancelledMessage) isMessage() {}

// IsTerminal reports whether m ends an extraction.
func IsTerminal(m Message) bool {
	_, progress := m.(ProgressMessage)
	return !progress
}

// progressBuffer lets a worker run ahead of a slow reader for a few pages.
const progressBuffer = 16

// Start runs Extract on its own goroutine and streams its progress and outcome.
// Cancelling ctx stops the worker at the next page boundary and yields a
// CancelledMessage instead of content or an error. The channel is closed after
// the terminal message; callers must drain it.
func (e *Extractor) Start(ctx context.Context, doc RawDocument) <-chan Message {
	out := make(chan Message, progressBuffer)

	go func() {
		defer close(out)

		content, err := e.Extract(ctx, doc, func(p Progress) {
			select {
			case out <- ProgressMessage{Progress: p}:
			case <-ctx.Done():
			}
		})

		switch {
		case errors.Is(err, ErrCancelled):
			out <- CancelledMessage{}
		case err != nil:
			out <- ErrorMessage{Err: err}
		default:
			out <- ContentMessage{Content: content}
		}
	}()

	return out
}
