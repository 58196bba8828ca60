package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/logging"
	"github.com/kdimtricp/signlang/internal/models"
	"github.com/kdimtricp/signlang/internal/session"
	"github.com/kdimtricp/signlang/internal/vocabulary"
)

// HistoryStore is the read side of the classification history.
type HistoryStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.Classification, error)
	GetByID(ctx context.Context, id string) (*models.Classification, error)
}

// MediaStore serves locally stored clips.
type MediaStore interface {
	Open(path string) (*os.File, error)
}

type App struct {
	Sessions      *session.Manager
	Vocabulary    *vocabulary.Vocabulary
	History       HistoryStore
	Media         MediaStore
	MaxUploadSize int64
	Logger        *zap.Logger
}

func (app *App) logger(r *http.Request) *zap.Logger {
	return logging.WithContext(r.Context(), app.Logger)
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) ListWordsHandler(w http.ResponseWriter, r *http.Request) {
	words := app.Vocabulary.Words()
	entries := make([]vocabulary.Entry, 0, len(words))
	for _, word := range words {
		entries = append(entries, app.Vocabulary.Lookup(word))
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetWordHandler resolves any input; unknown words are reported with
// known=false rather than 404 so clients can render the neutral style.
func (app *App) GetWordHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Vocabulary.Lookup(chi.URLParam(r, "word")))
}

func (app *App) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if app.History == nil {
		writeJSON(w, http.StatusOK, []models.Classification{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			app.writeError(w, r, models.Wrap(models.ErrInvalidRequest, "limit must be a non-negative integer", nil))
			return
		}
		limit = n
	}

	results, err := app.History.ListRecent(r.Context(), limit)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []models.Classification{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (app *App) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if app.History == nil {
		app.writeError(w, r, models.Wrap(models.ErrNotFound, "history is disabled", nil))
		return
	}

	result, err := app.History.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MediaHandler streams a stored clip. ServeContent handles Range requests.
func (app *App) MediaHandler(w http.ResponseWriter, r *http.Request) {
	if app.Media == nil {
		http.NotFound(w, r)
		return
	}

	name := chi.URLParam(r, "*")
	file, err := app.Media.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", models.ContentTypeForFilename(name))
	http.ServeContent(w, r, name, stat.ModTime(), file)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.Wrap(models.ErrInvalidRequest, "decode body", err)
	}
	return nil
}
