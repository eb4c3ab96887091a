// Package recruitment serves the stateless endpoints that answer in a single
// request, without a session.
package recruitment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/generation"
	"recruitment-backend/internal/shared/server/respond"
	"recruitment-backend/internal/shared/telemetry"
	"recruitment-backend/internal/shared/util"
)

const defaultMaxUploadBytes = 10 << 20 // 10MB

// Handler wires the stateless endpoints to a generation backend.
type Handler struct {
	Backend        generation.Backend
	About          About
	MaxUploadBytes int64
	Now            func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(backend generation.Backend, about About, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Backend: backend, About: about, MaxUploadBytes: maxUploadBytes, Now: time.Now}
}

// RegisterRoutes attaches the stateless routes. The generate middlewares wrap
// the two generation endpoints only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, generate ...gin.HandlerFunc) {
	rg.GET("/templates", h.templates)
	rg.GET("/about", h.about)
	rg.POST("/job-spec/generate", append(append([]gin.HandlerFunc{}, generate...), h.generateJobSpec)...)
	rg.POST("/job-spec/upload", h.uploadJobSpec)
	rg.POST("/interview-questions/generate", append(append([]gin.HandlerFunc{}, generate...), h.generateQuestions)...)
	rg.POST("/interview-questions/upload-cv", h.uploadCV)
}

type templateResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Requirements string `json:"requirements"`
}

type jobSpecRequest struct {
	TemplateID   string `json:"template_id"`
	Position     string `json:"position" binding:"required"`
	Requirements string `json:"requirements" binding:"required"`
}

type jobSpecResponse struct {
	ID        string `json:"id"`
	JobSpec   string `json:"job_spec"`
	CreatedAt string `json:"created_at"`
}

type questionRequest struct {
	JobSpec string `json:"job_spec" binding:"required"`
	CVText  string `json:"cv_text"`
}

type questionResponse struct {
	Questions []generation.Question `json:"questions"`
}

type uploadResponse struct {
	Message string                `json:"message"`
	File    fileslot.SelectedFile `json:"file"`
}

func (h *Handler) templates(c *gin.Context) {
	tpls := generation.Templates()
	resp := make([]templateResponse, 0, len(tpls))
	for _, t := range tpls {
		resp = append(resp, templateResponse{ID: t.ID, Name: t.Name, Requirements: t.Requirements})
	}
	respond.OK(c, resp)
}

func (h *Handler) about(c *gin.Context) {
	respond.OK(c, h.About.withBackend(h.Backend.Name()))
}

func (h *Handler) generateJobSpec(c *gin.Context) {
	var req jobSpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "position and requirements are required", nil)
		return
	}
	if strings.TrimSpace(req.Position) == "" || strings.TrimSpace(req.Requirements) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "position and requirements are required", nil)
		return
	}
	if req.TemplateID != "" {
		if _, ok := generation.LookupTemplate(req.TemplateID); !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", fmt.Sprintf("unknown template %q", req.TemplateID), nil)
			return
		}
	}

	text, err := h.Backend.GenerateJobSpec(c.Request.Context(), generation.JobSpecInput{
		Mode:         flow.ModeManual,
		TemplateID:   req.TemplateID,
		Position:     req.Position,
		Requirements: req.Requirements,
	})
	if err != nil {
		h.generationError(c, err, "Failed to generate job specification")
		return
	}
	respond.OK(c, h.jobSpecResponse(text))
}

func (h *Handler) uploadJobSpec(c *gin.Context) {
	file, ok := h.readUpload(c)
	if !ok {
		return
	}
	text, err := generation.UploadedJobSpec(&file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.OK(c, h.jobSpecResponse(text))
}

func (h *Handler) generateQuestions(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.JobSpec) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job_spec is required", nil)
		return
	}

	questions, err := h.Backend.GenerateQuestions(c.Request.Context(), generation.QuestionsInput{
		Mode:        flow.ModeManual,
		JobSpecText: strings.TrimSpace(req.JobSpec),
		CVText:      strings.TrimSpace(req.CVText),
	})
	if err != nil {
		h.generationError(c, err, "Failed to generate interview questions")
		return
	}
	respond.OK(c, questionResponse{Questions: questions})
}

func (h *Handler) uploadCV(c *gin.Context) {
	file, ok := h.readUpload(c)
	if !ok {
		return
	}
	respond.OK(c, uploadResponse{
		Message: fmt.Sprintf("CV uploaded: %s", file.Name),
		File:    file,
	})
}

// readUpload measures the required "file" part. Content is discarded.
func (h *Handler) readUpload(c *gin.Context) (fileslot.SelectedFile, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
			return fileslot.SelectedFile{}, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return fileslot.SelectedFile{}, false
	}
	file, err := fileslot.FromMultipart(fh, nil)
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return fileslot.SelectedFile{}, false
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unable to read file", nil)
		return fileslot.SelectedFile{}, false
	}
	telemetry.Info("upload.measured", map[string]any{
		"path":         c.FullPath(),
		"file_name":    file.Name,
		"size_bytes":   file.SizeBytes,
		"content_type": file.ContentType,
		"accepted":     file.Accepted,
	})
	return file, true
}

func (h *Handler) jobSpecResponse(text string) jobSpecResponse {
	return jobSpecResponse{
		ID:        uuid.NewString(),
		JobSpec:   text,
		CreatedAt: h.Now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) generationError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		c.Abort()
	case errors.Is(err, flow.ErrGenerationFailed), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusBadGateway, "generation_failed", message, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
