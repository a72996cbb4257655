package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/wav"
)

// EncodeWAV handles POST /v1/audio/wav. The response body is the container.
func (h *Handler) EncodeWAV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBody)

	var req models.EncodeAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.gallery.EncodeBase64(req.PCMBase64, req.MIMEType)
	if err != nil {
		writeServiceError(w, err, "failed to encode audio")
		return
	}

	w.Header().Set("Content-Type", wav.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// Media handles GET /media/{id}: narration containers held in memory.
// Released or expired references are gone.
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "media")
	if !ok {
		return
	}
	if h.media == nil || h.references == nil {
		writeJSONError(w, http.StatusNotFound, "media not found")
		return
	}
	if _, ok := h.references.Lookup(id); !ok {
		writeJSONError(w, http.StatusNotFound, "media not found")
		return
	}
	data, mimeType, ok := h.media.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "media not found")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, id.String()+".wav", time.Time{}, bytes.NewReader(data))
}
