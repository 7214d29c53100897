package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/gorilla/mux"
)

func (h *Handler) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadBytes > 0 {
		// Room for the multipart envelope, the blob store enforces the exact limit.
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+maxJSONBody)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid multipart body: %v", errors.ErrValidation, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: a \"file\" part is required", errors.ErrValidation))
		return
	}
	defer file.Close()

	stored, err := h.chat.UploadMedia(r.Context(), principal(r).UserID, header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mediaView{
		MediaRef: stored.Ref,
		Kind:     stored.Kind,
		MimeType: stored.MimeType,
		Size:     stored.Size,
		URL:      h.blobs.URLFor(stored.Ref),
	})
}

// downloadMedia streams a stored blob. References are unguessable uuids.
func (h *Handler) downloadMedia(w http.ResponseWriter, r *http.Request) {
	reader, mimeType, err := h.blobs.Open(r.Context(), chat.MediaRef(mux.Vars(r)["ref"]))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	if seeker, ok := reader.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", time.Time{}, seeker)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.log.Debug("Media download interrupted", "ref", mux.Vars(r)["ref"], "error", err)
	}
}
