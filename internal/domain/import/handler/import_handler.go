// Package handler implements the statement ImportService Connect RPC handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-import/internal/domain/import/dedup"
	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/review"
	importservice "github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

// ServiceName is the fully qualified RPC service name.
const ServiceName = "statementimport.v1.ImportService"

// Procedure paths served by ImportHandler.
const (
	PreviewStatementProcedure  = "/" + ServiceName + "/PreviewStatement"
	DetectInstitutionProcedure = "/" + ServiceName + "/DetectInstitution"
	ListInstitutionsProcedure  = "/" + ServiceName + "/ListInstitutions"
	SuggestOwnerProcedure      = "/" + ServiceName + "/SuggestOwner"
	GetPreviewProcedure        = "/" + ServiceName + "/GetPreview"
	ListPreviewsProcedure      = "/" + ServiceName + "/ListPreviews"
)

// PreviewStatementRequest carries a statement and, unless a ledger is
// configured, the roster and history it is checked against.
type PreviewStatementRequest struct {
	UserID       string                     `json:"user_id,omitempty"`
	FileName     string                     `json:"file_name"`
	Document     []byte                     `json:"document"`
	AccountID    string                     `json:"account_id,omitempty"`
	Accounts     []repository.Account       `json:"accounts,omitempty"`
	Members      []owner.Member             `json:"members,omitempty"`
	ExistingKeys []string                   `json:"existing_keys,omitempty"`
	Existing     []parser.ParsedTransaction `json:"existing,omitempty"`
}

type PreviewStatementResponse struct {
	Batch    review.Batch            `json:"batch"`
	Summary  review.FormattedSummary `json:"summary"`
	Archived bool                    `json:"archived"`
}

type DetectInstitutionRequest struct {
	FileName string `json:"file_name"`
	Document []byte `json:"document"`
}

type DetectInstitutionResponse struct {
	Supported   bool                `json:"supported"`
	Institution *parser.Institution `json:"institution,omitempty"`
	Pages       int                 `json:"pages"`
	Metadata    *extractor.Metadata `json:"metadata,omitempty"`
}

type ListInstitutionsRequest struct{}

type ListInstitutionsResponse struct {
	Institutions []parser.Institution `json:"institutions"`
}

type SuggestOwnerRequest struct {
	UserID      string         `json:"user_id,omitempty"`
	AccountName string         `json:"account_name"`
	Members     []owner.Member `json:"members,omitempty"`
}

type SuggestOwnerResponse struct {
	Suggestion owner.NameParseResult `json:"suggestion"`
	Outcome    string                `json:"outcome"`
}

type GetPreviewRequest struct {
	UserID  string `json:"user_id"`
	BatchID string `json:"batch_id"`
}

type GetPreviewResponse struct {
	Batch   review.Batch            `json:"batch"`
	Summary review.FormattedSummary `json:"summary"`
}

type ListPreviewsRequest struct {
	UserID string `json:"user_id"`
}

type ListPreviewsResponse struct {
	Previews []review.ArchivedBatch `json:"previews"`
}

// ImportHandler handles ImportService RPCs
type ImportHandler struct {
	importSvc *importservice.ImportService
	ledger    repository.LedgerRepository
	archive   *review.Archive
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc *importservice.ImportService, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		importSvc: importSvc,
		logger:    logger,
	}
}

// WithLedger loads roster and history from the ledger for requests that name a
// user and leave them out.
func (h *ImportHandler) WithLedger(ledger repository.LedgerRepository) *ImportHandler {
	h.ledger = ledger
	return h
}

// WithArchive keeps every preview that names a user, for GetPreview and
// ListPreviews.
func (h *ImportHandler) WithArchive(archive *review.Archive) *ImportHandler {
	h.archive = archive
	return h
}

// Routes returns the path prefix and handler serving every procedure.
func (h *ImportHandler) Routes(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PreviewStatementProcedure, connect.NewUnaryHandler(PreviewStatementProcedure, h.PreviewStatement, opts...))
	mux.Handle(DetectInstitutionProcedure, connect.NewUnaryHandler(DetectInstitutionProcedure, h.DetectInstitution, opts...))
	mux.Handle(ListInstitutionsProcedure, connect.NewUnaryHandler(ListInstitutionsProcedure, h.ListInstitutions, opts...))
	mux.Handle(SuggestOwnerProcedure, connect.NewUnaryHandler(SuggestOwnerProcedure, h.SuggestOwner, opts...))
	mux.Handle(GetPreviewProcedure, connect.NewUnaryHandler(GetPreviewProcedure, h.GetPreview, opts...))
	mux.Handle(ListPreviewsProcedure, connect.NewUnaryHandler(ListPreviewsProcedure, h.ListPreviews, opts...))
	return "/" + ServiceName + "/", mux
}

// PreviewStatement parses a PDF statement into a reviewable batch
func (h *ImportHandler) PreviewStatement(ctx context.Context, req *connect.Request[PreviewStatementRequest]) (*connect.Response[PreviewStatementResponse], error) {
	msg := req.Msg
	if len(msg.Document) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("document is required"))
	}

	previewReq := importservice.PreviewRequest{
		Document:  extractor.RawDocument{Name: fileName(msg.FileName), Data: msg.Document},
		AccountID: msg.AccountID,
		Accounts:  msg.Accounts,
		Members:   msg.Members,
		Existing:  msg.Existing,
		BatchID:   uuid.New(),
	}
	if len(msg.ExistingKeys) > 0 {
		keys := make([]dedup.Key, len(msg.ExistingKeys))
		for i, k := range msg.ExistingKeys {
			keys[i] = dedup.Key(k)
		}
		previewReq.ExistingKeys = dedup.NewKeySet(keys...)
	}
	if err := h.loadLedger(ctx, msg.UserID, &previewReq); err != nil {
		h.logger.Error("failed to load ledger", slog.String("user_id", msg.UserID), slog.Any("error", err))
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	batch, err := h.importSvc.Preview(ctx, previewReq, nil)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &PreviewStatementResponse{
		Batch:   *batch,
		Summary: batch.Summary.Format(batch.Currency),
	}
	if h.archive != nil && msg.UserID != "" {
		// the preview is still useful without the archive
		if err := h.archive.Save(ctx, msg.UserID, batch); err != nil {
			h.logger.Warn("failed to archive preview",
				slog.String("user_id", msg.UserID),
				slog.String("batch_id", batch.ID.String()),
				slog.Any("error", err))
		} else {
			resp.Archived = true
		}
	}
	return connect.NewResponse(resp), nil
}

// loadLedger fills roster and history from the ledger when one is configured and
// the request did not send them.
func (h *ImportHandler) loadLedger(ctx context.Context, userID string, req *importservice.PreviewRequest) error {
	if h.ledger == nil || userID == "" {
		return nil
	}
	if len(req.Accounts) == 0 {
		accounts, err := h.ledger.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		req.Accounts = accounts
	}
	if len(req.Members) == 0 {
		members, err := h.ledger.ListMembers(ctx, userID)
		if err != nil {
			return err
		}
		req.Members = members
	}
	if len(req.Existing) == 0 {
		req.History = h.ledger.ListTransactions
	}
	return nil
}

// DetectInstitution reports which bank issued a statement
func (h *ImportHandler) DetectInstitution(ctx context.Context, req *connect.Request[DetectInstitutionRequest]) (*connect.Response[DetectInstitutionResponse], error) {
	if len(req.Msg.Document) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("document is required"))
	}

	det, ok, err := h.importSvc.Detect(ctx, extractor.RawDocument{Name: fileName(req.Msg.FileName), Data: req.Msg.Document})
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &DetectInstitutionResponse{Supported: ok, Pages: det.Pages, Metadata: det.Metadata}
	if ok {
		resp.Institution = &det.Institution
	}
	return connect.NewResponse(resp), nil
}

// ListInstitutions returns the supported banks in detection order
func (h *ImportHandler) ListInstitutions(_ context.Context, _ *connect.Request[ListInstitutionsRequest]) (*connect.Response[ListInstitutionsResponse], error) {
	return connect.NewResponse(&ListInstitutionsResponse{
		Institutions: h.importSvc.Registry().Institutions(),
	}), nil
}

// SuggestOwner attributes a printed account name to a household member
func (h *ImportHandler) SuggestOwner(ctx context.Context, req *connect.Request[SuggestOwnerRequest]) (*connect.Response[SuggestOwnerResponse], error) {
	msg := req.Msg
	if strings.TrimSpace(msg.AccountName) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("account_name is required"))
	}

	members := msg.Members
	if len(members) == 0 && h.ledger != nil && msg.UserID != "" {
		var err error
		members, err = h.ledger.ListMembers(ctx, msg.UserID)
		if err != nil {
			h.logger.Error("failed to list members", slog.String("user_id", msg.UserID), slog.Any("error", err))
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
	}

	suggestion := h.importSvc.SuggestOwner(ctx, msg.AccountName, members)
	return connect.NewResponse(&SuggestOwnerResponse{
		Suggestion: suggestion,
		Outcome:    suggestion.Outcome(),
	}), nil
}

// GetPreview returns an archived preview batch
func (h *ImportHandler) GetPreview(ctx context.Context, req *connect.Request[GetPreviewRequest]) (*connect.Response[GetPreviewResponse], error) {
	if h.archive == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errArchiveDisabled)
	}
	msg := req.Msg
	if msg.UserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id is required"))
	}
	id, err := uuid.Parse(msg.BatchID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid batch_id: %w", err))
	}

	batch, err := h.archive.Load(ctx, msg.UserID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		h.logger.Error("failed to load preview", slog.String("batch_id", msg.BatchID), slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&GetPreviewResponse{
		Batch:   *batch,
		Summary: batch.Summary.Format(batch.Currency),
	}), nil
}

// ListPreviews lists a user's archived previews, newest first
func (h *ImportHandler) ListPreviews(ctx context.Context, req *connect.Request[ListPreviewsRequest]) (*connect.Response[ListPreviewsResponse], error) {
	if h.archive == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errArchiveDisabled)
	}
	if req.Msg.UserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id is required"))
	}

	previews, err := h.archive.List(ctx, req.Msg.UserID)
	if err != nil {
		h.logger.Error("failed to list previews", slog.String("user_id", req.Msg.UserID), slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ListPreviewsResponse{Previews: previews}), nil
}

var errArchiveDisabled = errors.New("preview archive is not configured")

func fileName(name string) string {
	if name == "" {
		return "statement.pdf"
	}
	return name
}

// toConnectError maps pipeline errors to Connect codes. Unreadable input is the
// caller's fault; anything else is ours.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, extractor.ErrOpenDocument), errors.Is(err, extractor.ErrDocumentTooLarge):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, extractor.ErrCancelled), errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
