package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainerrors "github.com/hungtmh/online-auction-system-sub000/internal/domain/errors"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// Handler serves the auction HTTP API. Caller identity arrives in the
// X-User-ID header; authentication itself happens upstream at the
// gateway.
type Handler struct {
	svc      bidding.Service
	validate *validator.Validate
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewHandler creates the API handler
func NewHandler(svc bidding.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		tracer:   otel.Tracer("api.rest"),
	}
}

// RegisterRoutes attaches all endpoints to the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auctions/{id}/bids", h.handlePlaceBid)
	mux.HandleFunc("POST /api/v1/auctions/{id}/disqualify", h.handleDisqualify)
	mux.HandleFunc("POST /api/v1/auctions/{id}/reopen", h.handleReopen)
	mux.HandleFunc("GET /api/v1/auctions/{id}", h.handleGetAuction)
	mux.HandleFunc("GET /api/v1/auctions/{id}/winning", h.handleIsWinning)
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rest.place_bid")
	defer span.End()

	auctionID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	bidderID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req PlaceBidRequest
	if !h.decode(w, r, &req) {
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = values.VND
	}
	maxBid, err := values.NewMoneyFromString(req.MaxAmount, currency)
	if err != nil {
		h.writeError(w, r, domainerrors.NewValidationError("INVALID_AMOUNT", "max_amount is not a valid decimal").WithCause(err))
		return
	}

	span.SetAttributes(
		attribute.String("auction.id", auctionID.String()),
		attribute.String("bidder.id", bidderID.String()),
	)

	result, err := h.svc.SubmitBid(ctx, &bidding.SubmitBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxBid:    maxBid,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleDisqualify(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rest.disqualify_bidder")
	defer span.End()

	auctionID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sellerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req DisqualifyBidderRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.DisqualifyBidder(ctx, &bidding.DisqualifyRequest{
		AuctionID: auctionID,
		SellerID:  sellerID,
		BidderID:  req.BidderID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rest.reopen_auction")
	defer span.End()

	auctionID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sellerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req ReopenAuctionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ReopenAuction(ctx, auctionID, sellerID, req.NewEndTime); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"reopened": true})
}

func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

func (h *Handler) handleIsWinning(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	bidderID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	winning, err := h.svc.IsWinning(r.Context(), auctionID, bidderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := WinningResponse{IsWinning: winning}
	if leader, err := h.svc.CurrentLeader(r.Context(), auctionID); err == nil {
		resp.LeaderID = leader
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, domainerrors.NewValidationError("INVALID_AUCTION_ID", "auction id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		h.writeError(w, r, &domainerrors.AppError{
			Type:       domainerrors.ErrorTypeUnauthorized,
			Code:       "MISSING_IDENTITY",
			Message:    "X-User-ID header is required",
			StatusCode: http.StatusUnauthorized,
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, domainerrors.NewValidationError("INVALID_BODY", "request body is not valid JSON").WithCause(err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, domainerrors.NewValidationError("VALIDATION_FAILED", err.Error()).WithCause(err))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := domainerrors.GetStatusCode(err)
	body := ErrorResponse{Code: "INTERNAL_ERROR", Message: "internal server error"}

	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		body = ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
			slog.String("request_id", RequestIDFromContext(r.Context())),
		)
	}
	h.writeJSON(w, status, body)
}
