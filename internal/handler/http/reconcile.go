package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/reconcile"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
)

type ReconcileHandler interface {
	Reconcile(w http.ResponseWriter, r *http.Request)
}

type reconcileHandlerImpl struct {
	reconcileService reconcile.ReconcileService
	now              func() time.Time
}

func NewReconcileHandler(reconcileService reconcile.ReconcileService) ReconcileHandler {
	return &reconcileHandlerImpl{
		reconcileService: reconcileService,
		now:              time.Now,
	}
}

// Reconcile implements ReconcileHandler. The date comes from the body or the
// ?date= query; neither means today.
func (h *reconcileHandlerImpl) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcile.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.Date == "" {
		req.Date = r.URL.Query().Get("date")
	}

	summary, err := h.reconcileService.ReconcileAbsences(r.Context(), req, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Absences reconciled", summary)
}
