package server

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"strconv"

	apperrors "github.com/zsiec/codescan/internal/errors"
	"github.com/zsiec/codescan/pkg/version"
)

// cameraFailure is the metadata attached to errors once the camera failed.
type cameraFailure struct {
	ErrorText string `json:"error_text"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.writeJSON(w, r, http.StatusOK, version.GetInfo())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.scanner.Status())
}

// handlePreview encodes the current output buffer as JPEG. After a camera
// failure the preview is replaced by the configured error text.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.preview.Allow() {
		s.errorHandler.HandleError(w, r, apperrors.NewRateLimitError("preview rate limit exceeded"))
		return
	}

	if err := s.scanner.Err(); err != nil {
		s.errorHandler.HandleErrorWithMetadata(w, r, unavailable(err), cameraFailure{ErrorText: s.scanner.ErrorText()})
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.scanner.Preview(), &jpeg.Options{Quality: s.config.PreviewQuality}); err != nil {
		s.errorHandler.HandleError(w, r, apperrors.WrapInternalError(err, "failed to encode preview"))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// unavailable keeps the type and code of a camera failure but answers 503.
func unavailable(err error) error {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		return apperrors.Wrap(err, apperrors.ErrorTypeDevice, "camera unavailable", http.StatusServiceUnavailable)
	}
	return apperrors.Wrap(err, appErr.Type, appErr.Message, http.StatusServiceUnavailable).WithCode(appErr.Code)
}

func (s *Server) handleFreeze(frozen bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.scanner.SetShowStaticImage(frozen)
		s.log.WithField("frozen", frozen).Info("Preview freeze toggled")
		s.writeJSON(w, r, http.StatusOK, s.scanner.Status())
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.scanner.Reset()
	st := s.scanner.Status()
	s.log.WithField("session_id", st.SessionID).Info("Scan session reset")
	s.writeJSON(w, r, http.StatusOK, st)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.errorHandler.HandleError(w, r, apperrors.WrapInternalError(err, "failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
