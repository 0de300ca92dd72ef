package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/service"
)

type HTTPHandler struct {
	reservations *service.ReservationService
	logger       *zap.Logger
}

type reservationRequest struct {
	SKUID      string `json:"skuId"`
	UserID     string `json:"userId"`
	CartID     string `json:"cartId"`
	TTLSeconds int    `json:"ttlSeconds,omitempty"`
}

type holdResponse struct {
	Status              string `json:"status"`
	SKUID               string `json:"skuId"`
	Reason              string `json:"reason,omitempty"`
	TTLSecondsRemaining *int64 `json:"ttlSecondsRemaining,omitempty"`
}

type actionResponse struct {
	Status string `json:"status"`
	SKUID  string `json:"skuId"`
}

type errorResponse struct {
	Reason string `json:"reason"`
}

func NewHTTPHandler(reservations *service.ReservationService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{reservations: reservations, logger: logger}
}

func (h *HTTPHandler) Hold(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	receipt, err := h.reservations.Hold(r.Context(), req.SKUID, req.UserID, req.CartID, req.TTLSeconds)
	if err != nil {
		var held *service.LockHeldError
		switch {
		case errors.Is(err, service.ErrInvalidPayload):
			writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "INVALID_PAYLOAD"})
		case errors.Is(err, service.ErrSKUConsumed):
			writeJSON(w, http.StatusConflict, errorResponse{Reason: "SKU_CONSUMED"})
		case errors.As(err, &held):
			resp := holdResponse{Status: "HOLD_REJECTED", SKUID: req.SKUID, Reason: "SKU_LOCKED"}
			if held.Holder != nil {
				ttl := held.Holder.TTLSecondsRemaining
				resp.TTLSecondsRemaining = &ttl
			}
			writeJSON(w, http.StatusConflict, resp)
		default:
			h.internalError(w, "hold failed", err)
		}
		return
	}

	ttl := receipt.TTLSecondsRemaining
	writeJSON(w, http.StatusCreated, holdResponse{
		Status:              "HOLD_CREATED",
		SKUID:               receipt.SKUID,
		TTLSecondsRemaining: &ttl,
	})
}

func (h *HTTPHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	err := h.reservations.Confirm(r.Context(), req.SKUID, req.UserID, req.CartID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayload):
			writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "INVALID_PAYLOAD"})
		case errors.Is(err, service.ErrLockMissing):
			writeJSON(w, http.StatusConflict, errorResponse{Reason: "SKU_LOCK_MISSING"})
		case errors.Is(err, service.ErrOwnershipMismatch):
			writeJSON(w, http.StatusConflict, errorResponse{Reason: "SKU_LOCK_OWNERSHIP_MISMATCH"})
		case errors.Is(err, service.ErrAlreadyReserved):
			writeJSON(w, http.StatusConflict, errorResponse{Reason: "SKU_ALREADY_RESERVED"})
		default:
			h.internalError(w, "confirm failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Status: "CONFIRMED", SKUID: req.SKUID})
}

func (h *HTTPHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	err := h.reservations.Cancel(r.Context(), req.SKUID, req.UserID, req.CartID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayload):
			writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "INVALID_PAYLOAD"})
		case errors.Is(err, service.ErrLockNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Reason: "SKU_LOCK_NOT_FOUND"})
		case errors.Is(err, service.ErrOwnershipMismatch):
			writeJSON(w, http.StatusConflict, errorResponse{Reason: "SKU_LOCK_OWNERSHIP_MISMATCH"})
		default:
			h.internalError(w, "cancel failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Status: "CANCELED", SKUID: req.SKUID})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, msg string, err error) {
	// Infrastructure failures stay opaque; they are never mapped to a
	// business reason.
	h.logger.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Reason: "INTERNAL_ERROR"})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (reservationRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return reservationRequest{}, false
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "INVALID_PAYLOAD"})
		return reservationRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
