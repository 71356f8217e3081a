package web

import (
	"net/http"

	"invoice-app/internal/app"
)

// listInvoices handles GET /api/invoices. An optional ?status= query
// parameter filters by lifecycle status.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInvoices(r.Context(), ownerID(r), r.URL.Query().Get("status"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createInvoice handles POST /api/invoices.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateInvoice(r.Context(), ownerID(r), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// getInvoice handles GET /api/invoices/{id} — the invoice with its line
// items and payment history.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.GetInvoice(r.Context(), ownerID(r), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// deleteInvoice handles DELETE /api/invoices/{id}.
func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteInvoice(r.Context(), ownerID(r), id); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setInvoiceStatus handles POST /api/invoices/{id}/status.
func (h *Handler) setInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,max=20"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.SetInvoiceStatus(r.Context(), ownerID(r), id, req.Status)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// recordPayment handles POST /api/invoices/{id}/payments. The response is
// the invoice with its recomputed balance and status.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	var req app.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.RecordPayment(r.Context(), ownerID(r), id, req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// listInvoicePayments handles GET /api/invoices/{id}/payments.
func (h *Handler) listInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ListInvoicePayments(r.Context(), ownerID(r), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listPayments handles GET /api/payments.
func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPayments(r.Context(), ownerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// draftInvoice handles POST /api/invoices/draft — AI-assisted drafting from
// a natural language description. The draft is returned for client review;
// nothing is persisted until the client submits it through createInvoice.
func (h *Handler) draftInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.DraftInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.svc.DraftInvoice(r.Context(), ownerID(r), req.Text)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
