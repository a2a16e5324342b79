package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/buzzdrop/buzzdrop/internal/middleware"
	"github.com/buzzdrop/buzzdrop/internal/models"
	"github.com/buzzdrop/buzzdrop/internal/service"
)

// ShareService defines the share operations required by the ShareHandler.
type ShareService interface {
	// Upload stores an encrypted payload and returns the new share record.
	Upload(ctx context.Context, owner, name string, kind models.ShareKind, expiry *time.Time, payload io.Reader) (*models.Share, error)
	// Get returns recipient-facing share state.
	Get(ctx context.Context, id string) (*models.Share, error)
	// Download claims the one-shot payload stream.
	Download(ctx context.Context, id, ip string) (*service.Download, error)
	// ReportDecryption records the recipient's decrypt outcome.
	ReportDecryption(ctx context.Context, id string, ok bool) error
	// ListByOwner returns the owner's shares.
	ListByOwner(ctx context.Context, owner string) ([]models.Share, error)
	// Delete removes a share on behalf of its owner.
	Delete(ctx context.Context, owner, id string) error
}

// ShareHandler handles HTTP requests for uploading, viewing, downloading
// and deleting shares.
type ShareHandler struct {
	Shares ShareService
	// BaseURL builds the externally visible share link.
	BaseURL string
	// ExtensionAllowed is the upload policy for file shares.
	ExtensionAllowed func(filename string) bool
	Log              *zap.Logger
}

// multipartMemory bounds how much of the form is buffered in memory; the
// rest spills to temp files.
const multipartMemory = 4 << 20

// Upload handles POST /api/shares. The multipart form carries the
// already-encrypted payload in "file" plus "kind" (file|text) and an
// optional RFC 3339 "expiry". The server stores the bytes verbatim.
func (h *ShareHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserFromContext(r.Context())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	kind := models.ShareKind(r.FormValue("kind"))
	if kind == "" {
		kind = models.KindFile
	}
	if kind != models.KindFile && kind != models.KindText {
		http.Error(w, "invalid kind", http.StatusBadRequest)
		return
	}

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		http.Error(w, "no selected file", http.StatusBadRequest)
		return
	}
	if kind == models.KindFile && h.ExtensionAllowed != nil && !h.ExtensionAllowed(name) {
		http.Error(w, "file type not allowed", http.StatusBadRequest)
		return
	}

	var expiry *time.Time
	if raw := r.FormValue("expiry"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid expiry", http.StatusBadRequest)
			return
		}
		expiry = &t
	}

	share, err := h.Shares.Upload(r.Context(), owner, name, kind, expiry, file)
	if err != nil {
		h.Log.Error("upload failed", zap.Error(err))
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":         share.ID,
		"share_link": fmt.Sprintf("%s/view/%s", h.BaseURL, share.ID),
	})
}

// View handles GET /api/shares/{id}, the recipient-facing metadata lookup
// backing the confirm-download page. It does not consume the share.
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	share, err := h.Shares.Get(r.Context(), id)
	if err != nil {
		h.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":            share.ID,
		"original_name": share.OriginalName,
		"kind":          share.Kind,
		"created_at":    share.CreatedAt,
	})
}

// Download handles GET /api/shares/{id}/download: the one-shot fetch. The
// payload is streamed verbatim and the stored copy is deleted once the
// stream has been fully served, regardless of whether the recipient will
// manage to decrypt it.
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dl, err := h.Shares.Download(r.Context(), id, r.RemoteAddr)
	if err != nil {
		h.writeShareError(w, err)
		return
	}
	defer dl.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", dl.Share.OriginalName))
	if _, err := io.Copy(w, dl); err != nil {
		// Headers are already out; all we can do is log. The blob is still
		// deleted by Close: the claim happened and the share is consumed.
		h.Log.Error("download stream interrupted",
			zap.String("id", id), zap.Error(err))
	}
}

// Report handles POST /api/shares/{id}/report with body {"success": bool}.
func (h *ShareHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Success *bool `json:"success"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Success == nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Shares.ReportDecryption(r.Context(), id, *req.Success); err != nil {
		h.writeShareError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "recorded"})
}

// List handles GET /api/shares for the authenticated owner.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserFromContext(r.Context())
	shares, err := h.Shares.ListByOwner(r.Context(), owner)
	if err != nil {
		h.Log.Error("list shares failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if shares == nil {
		shares = []models.Share{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"shares": shares})
}

// Delete handles DELETE /api/shares/{id} for the authenticated owner.
func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.Shares.Delete(r.Context(), owner, id); err != nil {
		h.writeShareError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShareHandler) writeShareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "share not found", http.StatusNotFound)
	case errors.Is(err, service.ErrExpired):
		http.Error(w, "share has expired", http.StatusGone)
	default:
		h.Log.Error("share operation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
