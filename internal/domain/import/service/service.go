// Package service provides the statement import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-import/internal/domain/import/dedup"
	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/review"
	"github.com/FACorreiaa/statement-import/pkg/metrics"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

const tracerName = "github.com/FACorreiaa/statement-import/internal/domain/import/service"

// DefaultHistoryPadding widens the history window around the statement period.
const DefaultHistoryPadding = 7 * 24 * time.Hour

// HistoryFunc loads the ledger transactions of accountID posted in [from, to].
type HistoryFunc func(ctx context.Context, accountID string, from, to time.Time) ([]parser.ParsedTransaction, error)

// PreviewRequest is one statement plus the ledger state it is checked against.
type PreviewRequest struct {
	Document extractor.RawDocument
	// AccountID forces the target account. Empty means resolve from the statement.
	AccountID string
	Accounts  []repository.Account
	Members   []owner.Member
	// ExistingKeys are keys the ledger stored at earlier imports.
	ExistingKeys dedup.KeySet
	// Existing are ledger transactions of the target account.
	Existing []parser.ParsedTransaction
	// History, when set, is called once the account is known and its rows are
	// added to Existing.
	History HistoryFunc
	// BatchID is used as the batch ID when set.
	BatchID uuid.UUID
}

// ImportService orchestrates extraction, parsing, deduplication and owner
// matching into a reviewable batch. It never writes to the ledger.
type ImportService struct {
	extractor *extractor.Extractor
	registry  *parser.Registry
	metrics   *metrics.ImportMetrics
	tracer    trace.Tracer
	currency  string
	padding   time.Duration
	logger    *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(ex *extractor.Extractor, registry *parser.Registry, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = parser.DefaultRegistry()
	}
	return &ImportService{
		extractor: ex,
		registry:  registry,
		tracer:    otel.Tracer(tracerName),
		currency:  money.AUD,
		padding:   DefaultHistoryPadding,
		logger:    logger,
	}
}

// WithMetrics records pipeline metrics to m
func (s *ImportService) WithMetrics(m *metrics.ImportMetrics) *ImportService {
	s.metrics = m
	return s
}

// WithCurrency sets the currency of every batch
func (s *ImportService) WithCurrency(code string) *ImportService {
	if code != "" {
		s.currency = strings.ToUpper(code)
	}
	return s
}

// WithHistoryPadding sets how far before and after the statement period
// History is asked for
func (s *ImportService) WithHistoryPadding(d time.Duration) *ImportService {
	if d >= 0 {
		s.padding = d
	}
	return s
}

// WithTracer replaces the global tracer
func (s *ImportService) WithTracer(t trace.Tracer) *ImportService {
	if t != nil {
		s.tracer = t
	}
	return s
}

// Registry returns the parser registry in use.
func (s *ImportService) Registry() *parser.Registry {
	return s.registry
}

// Preview extracts, parses and deduplicates a statement. Only a document that
// cannot be read is an error; an unrecognised statement yields a batch with
// Success false and its reasons in Errors.
func (s *ImportService) Preview(ctx context.Context, req PreviewRequest, onProgress extractor.ProgressFunc) (*review.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "ImportService.Preview",
		trace.WithAttributes(attribute.String("document", req.Document.Name)))
	defer span.End()

	content, err := s.extract(ctx, req.Document, onProgress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, err
	}
	return s.Assemble(ctx, req, content)
}

func (s *ImportService) extract(ctx context.Context, doc extractor.RawDocument, onProgress extractor.ProgressFunc) (*extractor.ExtractedContent, error) {
	ctx, span := s.tracer.Start(ctx, "extract")
	defer span.End()

	start := time.Now()
	content, err := s.extractor.Extract(ctx, doc, onProgress)
	s.metrics.ObserveExtraction(extractionResult(err), time.Since(start))
	if err != nil {
		s.logger.WarnContext(ctx, "statement extraction failed",
			slog.String("document", doc.Name),
			slog.Any("error", err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("pages", len(content.Pages)))
	return content, nil
}

func extractionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, extractor.ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}

// Assemble runs the synchronous stages over already extracted content.
func (s *ImportService) Assemble(ctx context.Context, req PreviewRequest, content *extractor.ExtractedContent) (*review.Batch, error) {
	res := s.parse(ctx, content.Text())
	account, warnings := ResolveAccount(req, res)

	existing := req.Existing
	if req.History != nil && res.Success {
		from, to := historyWindow(res, s.padding)
		history, err := req.History(ctx, account.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load history for account %s: %w", account.ID, err)
		}
		existing = append(append([]parser.ParsedTransaction(nil), existing...), history...)
	}

	partition := s.deduplicate(ctx, account.ID, res.Transactions, req.ExistingKeys, existing)
	suggestion := s.suggestOwner(ctx, res.AccountName, req.Members)

	batch := review.Build(review.BuildInput{
		ID:        req.BatchID,
		Document:  req.Document.Name,
		Parse:     res,
		Partition: partition,
		Owner:     suggestion,
		Account:   account,
		Currency:  s.currency,
		Warnings:  append(append([]string(nil), content.Warnings...), warnings...),
	})

	s.logger.InfoContext(ctx, "statement preview ready",
		slog.String("document", req.Document.Name),
		slog.String("batch", batch.ID.String()),
		slog.String("institution", batch.InstitutionCode),
		slog.Int("pages", len(content.Pages)),
		slog.Int("transactions", len(batch.Items)),
		slog.Int("duplicates", len(batch.Duplicates)),
		slog.String("account", account.ID),
		slog.String("owner", suggestion.Outcome()))

	return &batch, nil
}

func (s *ImportService) parse(ctx context.Context, text string) parser.ParseResult {
	_, span := s.tracer.Start(ctx, "parse")
	defer span.End()

	res := s.registry.DetectAndParse(text)
	s.metrics.ObserveParse(res.InstitutionCode, res.Success, len(res.Transactions), len(res.Warnings))

	span.SetAttributes(
		attribute.String("institution", res.InstitutionCode),
		attribute.Bool("success", res.Success),
		attribute.Int("transactions", len(res.Transactions)))
	if !res.Success {
		span.SetStatus(codes.Error, strings.Join(res.Errors, "; "))
		s.logger.InfoContext(ctx, "statement not parsed",
			slog.String("institution", res.InstitutionCode),
			slog.Any("errors", res.Errors))
	}
	return res
}

func (s *ImportService) deduplicate(ctx context.Context, accountID string, incoming []parser.ParsedTransaction, keys dedup.KeySet, existing []parser.ParsedTransaction) dedup.Partition {
	_, span := s.tracer.Start(ctx, "dedup")
	defer span.End()

	seen := keys.With(dedup.BuildKeySet(accountID, existing))
	p := dedup.FilterDuplicates(accountID, incoming, seen)
	s.metrics.ObserveDuplicates(len(p.Duplicates))

	span.SetAttributes(
		attribute.Int("existing", seen.Len()),
		attribute.Int("duplicates", len(p.Duplicates)))
	return p
}

func (s *ImportService) suggestOwner(ctx context.Context, accountName string, members []owner.Member) owner.NameParseResult {
	_, span := s.tracer.Start(ctx, "owner")
	defer span.End()

	res := owner.Suggest(accountName, members)
	s.metrics.ObserveOwner(res.Outcome())
	span.SetAttributes(
		attribute.String("outcome", res.Outcome()),
		attribute.Float64("confidence", res.Confidence))
	return res
}

// SuggestOwner attributes an account name to a roster member.
func (s *ImportService) SuggestOwner(ctx context.Context, accountName string, members []owner.Member) owner.NameParseResult {
	return s.suggestOwner(ctx, accountName, members)
}

// Detection is the institution a document was recognised as.
type Detection struct {
	Institution parser.Institution  `json:"institution"`
	Pages       int                 `json:"pages"`
	Metadata    *extractor.Metadata `json:"metadata,omitempty"`
}

// Detect extracts doc and reports which parser claims it. ok is false when no
// parser recognises the statement.
func (s *ImportService) Detect(ctx context.Context, doc extractor.RawDocument) (det Detection, ok bool, err error) {
	content, err := s.extract(ctx, doc, nil)
	if err != nil {
		return Detection{}, false, err
	}
	det = Detection{Pages: len(content.Pages), Metadata: content.Metadata}
	p, ok := s.registry.Detect(content.Text())
	if !ok {
		return det, false, nil
	}
	det.Institution = parser.Institution{Name: p.Name(), Code: p.InstitutionCode()}
	return det, true, nil
}

// ResolveAccount picks the target account: the explicit ID, then a roster
// account with the statement's last four digits, then a roster account whose
// name resembles the statement's account name, then a pseudo-account derived
// from the statement itself.
func ResolveAccount(req PreviewRequest, res parser.ParseResult) (review.AccountRef, []string) {
	if req.AccountID != "" {
		ref := review.AccountRef{ID: req.AccountID, Source: review.AccountExplicit}
		for _, a := range req.Accounts {
			if a.ID == req.AccountID {
				ref.Name, ref.NumberLast4 = a.Name, a.NumberLast4
				break
			}
		}
		if res.AccountNumberLast4 != "" && ref.NumberLast4 != "" && ref.NumberLast4 != res.AccountNumberLast4 {
			return ref, []string{fmt.Sprintf("statement account ending %s does not match selected account ending %s",
				res.AccountNumberLast4, ref.NumberLast4)}
		}
		return ref, nil
	}

	if last4 := res.AccountNumberLast4; last4 != "" {
		for _, a := range req.Accounts {
			if a.NumberLast4 == last4 {
				return review.AccountRef{ID: a.ID, Name: a.Name, NumberLast4: a.NumberLast4, Source: review.AccountByNumber}, nil
			}
		}
	}

	if res.AccountName != "" {
		var best repository.Account
		bestScore := 0.0
		for _, a := range req.Accounts {
			if score := owner.Similarity(res.AccountName, a.Name); score > bestScore {
				best, bestScore = a, score
			}
		}
		if bestScore >= owner.MatchThreshold {
			return review.AccountRef{ID: best.ID, Name: best.Name, NumberLast4: best.NumberLast4, Source: review.AccountByName}, nil
		}
	}

	ref := review.AccountRef{
		ID:          StatementAccountID(res),
		Name:        res.AccountName,
		NumberLast4: res.AccountNumberLast4,
		Source:      review.AccountStatement,
	}
	var warnings []string
	if res.Success {
		warnings = append(warnings, fmt.Sprintf("no matching account found; using %s", ref.ID))
	}
	return ref, warnings
}

// StatementAccountID derives a stable account ID from a statement: stmt-1234
// from the last four digits, else stmt-<institution code>, else stmt-unknown.
func StatementAccountID(res parser.ParseResult) string {
	switch {
	case res.AccountNumberLast4 != "":
		return "stmt-" + res.AccountNumberLast4
	case res.InstitutionCode != "":
		return "stmt-" + strings.ToLower(res.InstitutionCode)
	default:
		return "stmt-unknown"
	}
}

// historyWindow spans the statement period, or the transaction dates when the
// statement prints no period, widened by padding on both sides.
func historyWindow(res parser.ParseResult, padding time.Duration) (time.Time, time.Time) {
	var r normalizer.DateRange
	if res.Period != nil {
		r = *res.Period
	} else {
		for i, tx := range res.Transactions {
			if i == 0 || tx.Date.Before(r.Start) {
				r.Start = tx.Date
			}
			if i == 0 || tx.Date.After(r.End) {
				r.End = tx.Date
			}
		}
	}
	return r.Start.Add(-padding), r.End.Add(padding)
}
