package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// UIHandler serves the single-page frontend
type UIHandler struct {
	t      *template.Template
	logger *zap.SugaredLogger
}

type indexData struct {
	IssueTypes []models.IssueType
	Statuses   []models.Status
}

// NewUIHandler parses the embedded templates
func NewUIHandler(logger *zap.SugaredLogger) (*UIHandler, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &UIHandler{t: t, logger: logger}, nil
}

// Index handles GET /
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := h.t.ExecuteTemplate(&buf, "index.html", indexData{
		IssueTypes: models.IssueTypes,
		Statuses:   models.Statuses,
	})
	if err != nil {
		h.logger.Errorw("Failed to render index", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
