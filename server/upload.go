package server

import (
	"fmt"
	"net/http"

	"github.com/chatrelay/relay/observability"
	"github.com/chatrelay/relay/uploads"
)

const maxUploadMemory = 32 << 20 // 32 MiB buffered before spooling to disk

// Upload event types.
const eventUpload observability.EventType = "server.upload"

type uploadResponse struct {
	Files []*uploads.Saved `json:"files"`
}

// handleUpload accepts multipart uploads under the "files" field and
// returns the stored identity of each.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	saved := make([]*uploads.Saved, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read %s", header.Filename))
			return
		}

		result, err := s.uploads.Save(header.Filename, header.Header.Get("Content-Type"), file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save %s", header.Filename))
			return
		}
		saved = append(saved, result)

		s.observe(r.Context(), eventUpload, observability.LevelInfo, map[string]any{
			"name": result.Name,
			"size": result.Size,
		})
	}

	writeJSON(w, http.StatusOK, uploadResponse{Files: saved})
}

// handleUploadGet serves a previously stored upload.
func (s *Server) handleUploadGet(w http.ResponseWriter, r *http.Request) {
	file, err := s.uploads.Open(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}
