package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/citizenwatch/roadwatch-server/internal/services"
)

const multipartMemory = 8 << 20

// ReportHandler handles report submission, listing and status changes
type ReportHandler struct {
	svc       *services.IssueService
	maxUpload int64
	logger    *zap.SugaredLogger
}

// NewReportHandler creates a new report handler. maxUpload caps the request
// body in bytes.
func NewReportHandler(svc *services.IssueService, maxUpload int64, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

// Submit handles POST /api/report
// Accepts multipart form-data with an optional issue_photo file, an
// urlencoded form, or a JSON body.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	req, err := h.parseSubmission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":      id,
		"message": "Report submitted",
	})
}

func (h *ReportHandler) parseSubmission(r *http.Request) (models.SubmitReportRequest, error) {
	var req models.SubmitReportRequest

	if isJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return req, err
		}
		defer r.MultipartForm.RemoveAll()
	} else if err := r.ParseForm(); err != nil {
		return req, err
	}

	req.IssueType = r.FormValue("issue_type")
	req.Description = r.FormValue("description")
	req.Location = r.FormValue("location")

	if r.MultipartForm == nil {
		return req, nil
	}
	file, header, err := r.FormFile("issue_photo")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, err
	}
	defer file.Close()

	photo, err := readPhoto(file, header)
	if err != nil {
		return req, err
	}
	req.Photo = photo
	return req, nil
}

func readPhoto(file multipart.File, header *multipart.FileHeader) (*models.Photo, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &models.Photo{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Dashboard handles GET /api/dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.ListAll(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

// Get handles GET /api/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// History handles GET /api/reports/{id}/history
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, changes)
}

// UpdateStatus handles POST /api/update-status
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)

	var req models.UpdateStatusRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// Credentials are judged before the body.
			if !h.svc.Authorized(token) {
				respondServiceError(w, h.logger, services.ErrUnauthorized)
				return
			}
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.ID = r.FormValue("id")
		req.Status = r.FormValue("status")
	}

	if err := h.svc.UpdateStatus(r.Context(), token, req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}
