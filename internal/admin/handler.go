package admin

import (
	"encoding/json"
	"net/http"

	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/payment"
	"sslcommerz-gateway/internal/sslcommerz"
	"sslcommerz-gateway/internal/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler serves the operator API. Routes are expected behind RequireOperator.
type Handler struct {
	Svc payment.Service
}

func NewHandler(svc payment.Service) *Handler {
	return &Handler{Svc: svc}
}

type settingsRequest struct {
	StoreID       string `json:"store_id"`
	StorePassword string `json:"store_password"`
	Sandbox       bool   `json:"sandbox"`
}

func (h *Handler) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var in payment.CheckoutInput
	if !decodeJSON(w, r, &in) {
		return
	}

	session, err := h.Svc.Checkout(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) RefundHandler(w http.ResponseWriter, r *http.Request) {
	var in payment.RefundInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.TranID == "" {
		utils.WriteJSONError(w, "tran_id is required", http.StatusBadRequest)
		return
	}

	res, err := h.Svc.Refund(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, res)
}

// ValidateSettingsHandler checks candidate store credentials before they are saved.
func (h *Handler) ValidateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var in settingsRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	err := h.Svc.ValidateCredentials(r.Context(), sslcommerz.Credentials{
		StoreID:       in.StoreID,
		StorePassword: in.StorePassword,
		Sandbox:       in.Sandbox,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		utils.WriteJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := payment.StatusCode(err)
	if code >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("Operator request failed", zap.Error(err))
	}
	utils.WriteJSONError(w, payment.PublicMessage(err), code)
}
