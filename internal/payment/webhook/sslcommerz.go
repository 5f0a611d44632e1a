package webhook

import (
	"errors"
	"net/http"

	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/payment"
	"sslcommerz-gateway/internal/utils"

	"go.uber.org/zap"
)

const maxFormBytes = 64 << 10

type Handler struct {
	Svc payment.Service
}

func NewWebhookHandler(svc payment.Service) *Handler {
	return &Handler{Svc: svc}
}

// NotificationHandler receives the gateway's server-to-server IPN form post.
func (h *Handler) NotificationHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	form := utils.Flatten(r.PostForm)
	query := utils.Flatten(r.URL.Query())

	ctx := logger.WithFields(r.Context(), zap.String("tran_id", form["tran_id"]))
	log := logger.FromCtx(ctx)

	res, err := h.Svc.HandleNotification(ctx, query, form)
	if errors.Is(err, payment.ErrDuplicateNotification) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	if err != nil {
		code := payment.StatusCode(err)
		if code >= http.StatusInternalServerError {
			log.Error("Notification processing failed", zap.Error(err))
		}
		utils.WriteJSONError(w, payment.PublicMessage(err), code)
		return
	}

	utils.WriteJSON(w, http.StatusOK, res)
}

// ReturnHandler serves the customer's browser redirect back from the gateway.
func (h *Handler) ReturnHandler(w http.ResponseWriter, r *http.Request) {
	query := utils.Flatten(r.URL.Query())
	res := h.Svc.HandleReturn(r.Context(), query)
	utils.WriteJSON(w, http.StatusOK, res)
}
