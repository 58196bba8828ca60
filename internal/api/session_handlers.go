package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/logging"
	"github.com/kdimtricp/signlang/internal/models"
	"github.com/kdimtricp/signlang/internal/session"
)

type modeRequest struct {
	Mode string `json:"mode"`
}

type wordRequest struct {
	Input string `json:"input"`
}

// withSession resolves {id} and tags the request context with it.
func (app *App) withSession(next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, ok := app.Sessions.Get(id)
		if !ok {
			app.writeError(w, r, models.Wrap(models.ErrNotFound, "session "+id, nil))
			return
		}
		next(w, r.WithContext(logging.WithSessionID(r.Context(), id)), s)
	}
}

func (app *App) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	s := app.Sessions.Create()
	w.Header().Set("Location", "/api/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (app *App) GetSessionHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (app *App) DeleteSessionHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	app.Sessions.Remove(r.Context(), s.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) SetModeHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		app.writeError(w, r, err)
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		app.writeError(w, r, models.Wrap(models.ErrInvalidRequest, "", err))
		return
	}
	if err := s.SetMode(r.Context(), mode); err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (app *App) ChooseWordHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req wordRequest
	if err := decodeJSON(r, &req); err != nil {
		app.writeError(w, r, err)
		return
	}
	if _, err := s.ChooseWord(req.Input); err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (app *App) StartCaptureHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.BeginCapture(r.Context()); err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// StopCaptureHandler returns 202 once the recording is finalized; upload and
// inference continue in the background and are observed via events.
func (app *App) StopCaptureHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.EndCapture(r.Context()); err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (app *App) UploadClipHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.ContentLength > app.MaxUploadSize {
		app.writeError(w, r, &http.MaxBytesError{Limit: app.MaxUploadSize})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		app.writeError(w, r, models.Wrap(models.ErrInvalidRequest, "parse upload", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		app.writeError(w, r, models.Wrap(models.ErrInvalidRequest, "missing video file", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "video/") && contentType != "application/octet-stream" {
		app.writeError(w, r, models.Wrap(models.ErrInvalidClip, fmt.Sprintf("unsupported content type %q", contentType), nil))
		return
	}

	clip, err := models.ReadClip(file, contentType, header.Filename)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if err := s.SelectClip(clip); err != nil {
		app.writeError(w, r, err)
		return
	}

	app.logger(r).Info("clip selected",
		zap.String("filename", header.Filename),
		zap.Int64("bytes", clip.Size()),
		zap.String("digest", clip.Digest))
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (app *App) ResetSessionHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Reset(r.Context())
	writeJSON(w, http.StatusOK, s.Snapshot())
}
