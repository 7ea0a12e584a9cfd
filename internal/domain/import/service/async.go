package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-import/internal/domain/import/review"
)

// PreviewJob is a preview running in the background.
type PreviewJob struct {
	// Messages carries the extractor's progress and terminal message. It is
	// closed before the job completes.
	Messages <-chan extractor.Message

	done  chan struct{}
	batch *review.Batch
	err   error
}

// Wait drains any unread messages and returns the batch, or the error that
// ended the job. A cancelled job returns an error wrapping extractor.ErrCancelled.
func (j *PreviewJob) Wait() (*review.Batch, error) {
	for range j.Messages {
	}
	<-j.done
	return j.batch, j.err
}

// Done is closed once the batch or error is available.
func (j *PreviewJob) Done() <-chan struct{} {
	return j.done
}

// PreviewAsync runs Preview with extraction on its own goroutine. Progress is
// streamed on the job's Messages; cancelling ctx stops extraction at the next
// page boundary.
func (s *ImportService) PreviewAsync(ctx context.Context, req PreviewRequest) *PreviewJob {
	src := s.extractor.Start(ctx, req.Document)
	out := make(chan extractor.Message, cap(src))
	job := &PreviewJob{Messages: out, done: make(chan struct{})}

	go func() {
		defer close(job.done)

		start := time.Now()
		var content *extractor.ExtractedContent
		for m := range src {
			switch m := m.(type) {
			case extractor.ContentMessage:
				content = m.Content
			case extractor.ErrorMessage:
				job.err = m.Err
			case extractor.CancelledMessage:
				job.err = fmt.Errorf("%w: %w", extractor.ErrCancelled, context.Cause(ctx))
			}
			out <- m
		}
		close(out)
		s.metrics.ObserveExtraction(extractionResult(job.err), time.Since(start))

		if job.err != nil {
			s.logger.WarnContext(ctx, "statement extraction failed",
				slog.String("document", req.Document.Name),
				slog.Any("error", job.err))
			return
		}
		if content == nil {
			job.err = fmt.Errorf("%w %q: extraction ended without content", extractor.ErrOpenDocument, req.Document.Name)
			return
		}
		job.batch, job.err = s.Assemble(context.WithoutCancel(ctx), req, content)
	}()

	return job
}
