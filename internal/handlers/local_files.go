package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/localfs"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

func (h *Handler) contentFiles() localfs.Dir {
	return localfs.Dir{Root: h.contentDir}
}

// LocalFiles lists the content directory.
func (h *Handler) LocalFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.contentFiles().List()
	if err != nil {
		log.Printf("[LocalFiles][List] error dir=%s err=%v", h.contentDir, err)
		writeAppError(w, err, "Failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// LocalRead returns {content} of ?filename.
func (h *Handler) LocalRead(w http.ResponseWriter, r *http.Request) {
	content, err := h.contentFiles().Read(queryParam(r, "filename"))
	if err != nil {
		writeAppError(w, err, "Failed to read file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

// LocalWrite saves {filename, content, directory} under the content directory.
func (h *Handler) LocalWrite(w http.ResponseWriter, r *http.Request) {
	var req models.LocalWriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	h.writeLocal(w, req)
}

func (h *Handler) writeLocal(w http.ResponseWriter, req models.LocalWriteRequest) {
	p, err := h.contentFiles().Write(req.Filename, req.Content, req.Directory)
	if err != nil {
		if apperr.KindOf(err) != apperr.Validation {
			log.Printf("[LocalFiles][Write] error filename=%q err=%v", req.Filename, err)
		}
		writeAppError(w, err, "Failed to write file")
		return
	}
	log.Printf("[LocalFiles][Write] saved path=%s bytes=%d", p, len(req.Content))
	writeJSON(w, http.StatusOK, models.LocalWriteResponse{Success: true, Path: p})
}

// StorageWrite saves a text file with the configured strategy: "local" writes
// under the content directory, "drive" creates a Google Doc named after the file.
func (h *Handler) StorageWrite(w http.ResponseWriter, r *http.Request) {
	var req models.LocalWriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	if h.storage != "drive" {
		h.writeLocal(w, req)
		return
	}

	if strings.TrimSpace(req.Filename) == "" || req.Content == "" {
		writeAppError(w, apperr.NewValidation("filename", "Filename and content are required"), "")
		return
	}
	c, ok := h.googleClient(w, r)
	if !ok {
		return
	}
	f, err := c.CreateDocument(r.Context(), localfs.SanitizeName(req.Filename), req.Content, "")
	if err != nil {
		log.Printf("[Storage][Drive] error filename=%q err=%v", req.Filename, err)
		writeAppError(w, err, "Failed to save file")
		return
	}
	log.Printf("[Storage][Drive] saved id=%s filename=%q", f.ID, req.Filename)
	writeJSON(w, http.StatusOK, models.LocalWriteResponse{Success: true, FileID: f.ID, Link: f.WebViewLink})
}
