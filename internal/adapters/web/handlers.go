package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"invoice-app/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// validate checks the `validate` struct tags on decoded request bodies.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	uploadDir string // destination for uploaded business logos
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		uploadDir: uploadDir,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public API) ─────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(64 << 10)) // 64 KB — login bodies are tiny

		r.Post("/api/auth/request-code", h.requestCode)
		r.Post("/api/auth/verify", h.verifyCode)
		r.Post("/api/auth/logout", h.logout)
	})

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		// Logo upload: multipart, size capped inside the handler.
		r.Post("/api/settings/logo", h.uploadLogo)

		// All other protected endpoints: 1 MB body limit.
		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(1 << 20)) // 1 MB

			// Auth / profile — reachable before onboarding so the client
			// can finish account setup.
			r.Get("/api/auth/me", h.me)
			r.Get("/api/settings", h.getSettings)
			r.Put("/api/settings", h.saveSettings)

			// Tenant data — requires a completed onboarding.
			r.Group(func(r chi.Router) {
				r.Use(h.RequireOnboarded)

				r.Get("/api/dashboard", h.dashboard)

				// Customers
				r.Get("/api/customers", h.listCustomers)
				r.Post("/api/customers", h.createCustomer)
				r.Get("/api/customers/{id}", h.getCustomer)
				r.Put("/api/customers/{id}", h.updateCustomer)
				r.Delete("/api/customers/{id}", h.deleteCustomer)

				// Products
				r.Get("/api/products", h.listProducts)
				r.Post("/api/products", h.createProduct)
				r.Get("/api/products/{id}", h.getProduct)
				r.Put("/api/products/{id}", h.updateProduct)
				r.Delete("/api/products/{id}", h.deleteProduct)

				// Invoices
				r.Get("/api/invoices", h.listInvoices)
				r.Post("/api/invoices", h.createInvoice)
				r.Get("/api/invoices/{id}", h.getInvoice)
				r.Delete("/api/invoices/{id}", h.deleteInvoice)
				r.Post("/api/invoices/{id}/status", h.setInvoiceStatus)

				// Payments
				r.Get("/api/invoices/{id}/payments", h.listInvoicePayments)
				r.Post("/api/invoices/{id}/payments", h.recordPayment)
				r.Get("/api/payments", h.listPayments)

				// AI drafting
				r.Post("/api/invoices/draft", h.draftInvoice)
			})
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// urlID extracts the {id} URL parameter as an int. Writes 400 and returns
// false when the parameter is not a positive integer.
func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id in URL", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v, runs struct validation, and
// returns false + writes an appropriate error response on failure. Returns
// HTTP 413 when the body exceeds the size limit set by RequestBodyLimit
// middleware; HTTP 400 for decode and validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, r, "invalid request: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return false
	}
	return true
}
