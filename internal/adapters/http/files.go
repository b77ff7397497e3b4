package httpadapter

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

// maxMultipartBody caps the whole upload request. Per-category limits are
// enforced while streaming to the blob store; this bound only stops a
// client from spooling an arbitrarily large multipart body to disk.
const maxMultipartBody = 16 << 20

const multipartMemoryBudget = 1 << 20

func (rt *Router) attachFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(multipartMemoryBudget); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart form is required"})
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("multipart_cleanup_failed", "error", err)
		}
	}()

	category, err := domain.ParseCategory(r.FormValue("category"))
	if err != nil {
		writeError(w, err)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.documents.Attach(r.Context(), principal, domain.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Category:    category,
		Body:        file,
	})
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordUpload("api", string(category), "rejected", 0)
		}
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload("api", string(category), "accepted", fileHeader.Size)
	}
	writeJSON(w, http.StatusCreated, doc)
}

// fileByHandle serves /v1/onboarding/files/{handle}: GET streams the blob,
// DELETE detaches it. Admins may target another record on GET with
// ?user_id=; for everyone else the principal's own record is used.
func (rt *Router) fileByHandle(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	handle := strings.TrimPrefix(r.URL.Path, "/v1/onboarding/files/")
	if handle == "" || strings.Contains(handle, "/") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file handle is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		rt.downloadFile(w, r, principal, handle)

	case http.MethodDelete:
		if err := rt.documents.Detach(r.Context(), principal, handle); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (rt *Router) downloadFile(w http.ResponseWriter, r *http.Request, principal domain.Principal, handle string) {
	ownerID := r.URL.Query().Get("user_id")

	stream, doc, err := rt.documents.Open(r.Context(), principal, ownerID, handle)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordDownload("api", "rejected")
		}
		writeError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": doc.Filename,
	}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		slog.Warn("file_stream_interrupted",
			"request_id", requestIDFromContext(r.Context()),
			"handle", handle,
			"error", err,
		)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDownload("api", "accepted")
	}
}
