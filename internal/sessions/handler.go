package sessions

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/interview"
	"recruitment-backend/internal/jobspec"
	"recruitment-backend/internal/shared/server/respond"
	"recruitment-backend/internal/shared/util"
)

const (
	sessionKey            = "session"
	defaultMaxUploadBytes = 10 << 20 // 10MB
)

// Handler exposes sessions and their mounted flows over HTTP.
type Handler struct {
	Manager        *Manager
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Manager: m, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches session routes. The generate middlewares only wrap
// the two generate endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, generate ...gin.HandlerFunc) {
	rg.POST("/sessions", h.create)
	rg.DELETE("/sessions/:id", h.delete)

	s := rg.Group("/sessions/:id", h.loadSession)
	s.GET("", h.get)
	s.PUT("/tab", h.switchTab)
	s.GET("/notifications", h.notifications)

	js := s.Group("/job-spec")
	js.PUT("/mode", h.jobSpecMode)
	js.PUT("/template", h.jobSpecTemplate)
	js.PUT("/fields", h.jobSpecFields)
	js.POST("/file", h.jobSpecFile)
	js.POST("/file/drag", h.jobSpecDrag)
	js.DELETE("/file", h.jobSpecRemoveFile)
	js.POST("/generate", chain(generate, h.jobSpecGenerate)...)

	iv := s.Group("/interview")
	iv.PUT("/mode", h.interviewMode)
	iv.PUT("/manual", h.interviewManual)
	iv.POST("/files/:slot", h.interviewFile)
	iv.POST("/files/:slot/drag", h.interviewDrag)
	iv.DELETE("/files/:slot", h.interviewRemoveFile)
	iv.POST("/generate", chain(generate, h.interviewGenerate)...)
}

type tabRequest struct {
	Tab string `json:"tab" binding:"required,oneof=job-specs interviews about"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=manual upload"`
}

type templateRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
}

type fieldsRequest struct {
	Position     *string `json:"position"`
	Requirements *string `json:"requirements"`
}

type manualRequest struct {
	JobSpec *string `json:"jobSpec" binding:"required"`
}

type dragRequest struct {
	Event string `json:"event" binding:"required,oneof=enter over leave"`
}

func (h *Handler) create(c *gin.Context) {
	s, err := h.Manager.Create(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.Set("sessionId", s.ID())
	respond.Created(c, s.View())
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) loadSession(c *gin.Context) {
	s, err := h.Manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.Set(sessionKey, s)
	c.Set("sessionId", s.ID())
	c.Next()
}

func session(c *gin.Context) *Session {
	return c.MustGet(sessionKey).(*Session)
}

func (h *Handler) get(c *gin.Context) {
	respond.OK(c, session(c).View())
}

func (h *Handler) switchTab(c *gin.Context) {
	var req tabRequest
	if !bind(c, &req) {
		return
	}
	tab, err := ParseTab(req.Tab)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	view, err := session(c).SwitchTab(c.Request.Context(), tab)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) notifications(c *gin.Context) {
	respond.OK(c, gin.H{"notifications": session(c).Notifications()})
}

// Job spec flow.

func (h *Handler) jobSpec(c *gin.Context) (*jobspec.Flow, bool) {
	f, err := session(c).JobSpec()
	if err != nil {
		h.fail(c, err, nil)
		return nil, false
	}
	return f, true
}

func (h *Handler) jobSpecMode(c *gin.Context) {
	var req modeRequest
	if !bind(c, &req) {
		return
	}
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.SetMode(req.Mode))
}

func (h *Handler) jobSpecTemplate(c *gin.Context) {
	var req templateRequest
	if !bind(c, &req) {
		return
	}
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.SelectTemplate(req.TemplateID))
}

func (h *Handler) jobSpecFields(c *gin.Context) {
	var req fieldsRequest
	if !bind(c, &req) {
		return
	}
	if req.Position == nil && req.Requirements == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "position or requirements is required", nil)
		return
	}
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	var (
		st  jobspec.State
		err error
	)
	if req.Position != nil {
		if st, err = f.SetPosition(*req.Position); err != nil {
			h.fail(c, err, st)
			return
		}
	}
	if req.Requirements != nil {
		st, err = f.SetRequirements(*req.Requirements)
	}
	h.reply(c, http.StatusOK)(st, err)
}

func (h *Handler) jobSpecFile(c *gin.Context) {
	drop, files, ok := h.readFiles(c)
	if !ok {
		return
	}
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	if drop {
		h.reply(c, http.StatusOK)(f.DropFile(files))
		return
	}
	h.reply(c, http.StatusOK)(f.PickFile(files))
}

func (h *Handler) jobSpecDrag(c *gin.Context) {
	var req dragRequest
	if !bind(c, &req) {
		return
	}
	event, err := fileslot.ParseDragEvent(req.Event)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.Drag(event))
}

func (h *Handler) jobSpecRemoveFile(c *gin.Context) {
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.RemoveFile())
}

func (h *Handler) jobSpecGenerate(c *gin.Context) {
	f, ok := h.jobSpec(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusAccepted)(f.Submit(c.Request.Context()))
}

// Interview flow.

func (h *Handler) interview(c *gin.Context) (*interview.Flow, bool) {
	f, err := session(c).Interview()
	if err != nil {
		h.fail(c, err, nil)
		return nil, false
	}
	return f, true
}

func (h *Handler) interviewSlot(c *gin.Context) (*interview.Flow, interview.SlotName, bool) {
	slot, err := interview.ParseSlot(c.Param("slot"))
	if err != nil {
		h.fail(c, err, nil)
		return nil, "", false
	}
	f, ok := h.interview(c)
	return f, slot, ok
}

func (h *Handler) interviewMode(c *gin.Context) {
	var req modeRequest
	if !bind(c, &req) {
		return
	}
	f, ok := h.interview(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.SetMode(req.Mode))
}

func (h *Handler) interviewManual(c *gin.Context) {
	var req manualRequest
	if !bind(c, &req) {
		return
	}
	f, ok := h.interview(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.SetManualJobSpec(*req.JobSpec))
}

func (h *Handler) interviewFile(c *gin.Context) {
	f, slot, ok := h.interviewSlot(c)
	if !ok {
		return
	}
	drop, files, ok := h.readFiles(c)
	if !ok {
		return
	}
	if drop {
		h.reply(c, http.StatusOK)(f.DropFile(slot, files))
		return
	}
	h.reply(c, http.StatusOK)(f.PickFile(slot, files))
}

func (h *Handler) interviewDrag(c *gin.Context) {
	var req dragRequest
	if !bind(c, &req) {
		return
	}
	event, err := fileslot.ParseDragEvent(req.Event)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	f, slot, ok := h.interviewSlot(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.Drag(slot, event))
}

func (h *Handler) interviewRemoveFile(c *gin.Context) {
	f, slot, ok := h.interviewSlot(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusOK)(f.RemoveFile(slot))
}

func (h *Handler) interviewGenerate(c *gin.Context) {
	f, ok := h.interview(c)
	if !ok {
		return
	}
	h.reply(c, http.StatusAccepted)(f.Submit(c.Request.Context()))
}

// readFiles measures the uploaded "file" parts. source=drop selects drop
// semantics (no files changes nothing); anything else is a picker result
// (no files clears the slot). Only the first file is read.
func (h *Handler) readFiles(c *gin.Context) (drop bool, files []fileslot.SelectedFile, ok bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	var headers []*multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
				return false, nil, false
			}
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart body", nil)
			return false, nil, false
		}
		headers = form.File["file"]
		if v := form.Value["source"]; len(v) > 0 && c.Query("source") == "" {
			drop = strings.EqualFold(strings.TrimSpace(v[0]), "drop")
		}
	}
	if q := c.Query("source"); q != "" {
		drop = strings.EqualFold(strings.TrimSpace(q), "drop")
	}

	if len(headers) > 0 {
		sel, err := fileslot.FromMultipart(headers[0], nil)
		if err != nil {
			h.fail(c, err, nil)
			return false, nil, false
		}
		files = []fileslot.SelectedFile{sel}
	}
	return drop, files, true
}

func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	return append(append(out, mw...), h)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return false
	}
	return true
}

// reply writes a flow state or maps the flow error.
func (h *Handler) reply(c *gin.Context, status int) func(state any, err error) {
	return func(state any, err error) {
		if err != nil {
			h.fail(c, err, state)
			return
		}
		respond.JSON(c, status, state)
	}
}

func (h *Handler) fail(c *gin.Context, err error, state any) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrWrongTab):
		respond.Error(c, http.StatusConflict, "wrong_tab", err.Error(), gin.H{"tab": session(c).Tab()})
	case errors.Is(err, flow.ErrClosed):
		respond.Error(c, http.StatusConflict, "flow_closed", "flow was unmounted", nil)
	case errors.Is(err, flow.ErrBusy):
		respond.Error(c, http.StatusConflict, "busy", err.Error(), state)
	case errors.Is(err, flow.ErrMissingInput):
		respond.Error(c, http.StatusUnprocessableEntity, "missing_input", err.Error(), state)
	case errors.Is(err, ErrInvalidTab),
		errors.Is(err, flow.ErrInvalidMode),
		errors.Is(err, jobspec.ErrUnknownTemplate),
		errors.Is(err, interview.ErrUnknownSlot),
		errors.Is(err, fileslot.ErrInvalidDragEvent),
		errors.Is(err, fileslot.ErrNoFile),
		errors.Is(err, util.ErrInvalidFileName):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
