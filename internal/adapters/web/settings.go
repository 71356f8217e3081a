package web

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"invoice-app/internal/app"

	"github.com/google/uuid"
)

// maxLogoBytes caps logo uploads at 2 MB.
const maxLogoBytes = 2 << 20

var allowedLogoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// getSettings handles GET /api/settings.
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context(), ownerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// saveSettings handles PUT /api/settings. Saving settings for the first
// time completes onboarding.
func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req app.SaveSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	settings, err := h.svc.SaveSettings(r.Context(), ownerID(r), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// uploadLogo handles POST /api/settings/logo — a multipart upload with the
// image in the "logo" field. The file is stored under the upload directory
// with a generated name; only the stored path goes into the database.
func (h *Handler) uploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		writeError(w, r, "upload too large or malformed (max 2 MB)", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		writeError(w, r, "missing 'logo' file field", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedLogoExts[ext] {
		writeError(w, r, "unsupported image type (use jpg, png, or webp)", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		serviceError(w, r, err)
		return
	}

	name := uuid.NewString() + ext
	path := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(path)
		serviceError(w, r, err)
		return
	}

	if err := h.svc.SetLogoPath(r.Context(), ownerID(r), path); err != nil {
		_ = os.Remove(path)
		serviceError(w, r, err)
		return
	}

	type response struct {
		LogoPath string `json:"logo_path"`
	}
	writeJSON(w, http.StatusOK, response{LogoPath: path})
}

// dashboard handles GET /api/dashboard.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetDashboard(r.Context(), ownerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
