package sessions

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/interview"
	"recruitment-backend/internal/jobspec"
	"recruitment-backend/internal/notify"
	"recruitment-backend/internal/shared/server/respond"
)

type apiHarness struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T, maxUpload int64) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := newTestManager(t, Options{})
	r := gin.New()
	NewHandler(m, maxUpload).RegisterRoutes(r.Group("/api/v1"))
	return &apiHarness{t: t, router: r}
}

func (a *apiHarness) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *apiHarness) json(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return a.do(method, path, r, "application/json")
}

func (a *apiHarness) upload(path, name, content, source string) *httptest.ResponseRecorder {
	a.t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if source != "" {
		require.NoError(a.t, w.WriteField("source", source))
	}
	if name != "" {
		fw, err := w.CreateFormFile("file", name)
		require.NoError(a.t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())
	return a.do(http.MethodPost, path, body, w.FormDataContentType())
}

func (a *apiHarness) createSession() string {
	a.t.Helper()
	rec := a.json(http.MethodPost, "/api/v1/sessions", "")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var v View
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.NotEmpty(a.t, v.ID)
	return v.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandlerJobSpecManualGeneration(t *testing.T) {
	api := newAPI(t, 0)
	id := api.createSession()
	base := "/api/v1/sessions/" + id

	rec := api.json(http.MethodPut, base+"/job-spec/template", `{"templateId":"data-scientist"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[jobspec.State](t, rec)
	assert.Equal(t, "data-scientist", st.TemplateID)
	assert.NotEmpty(t, st.Requirements)

	rec = api.json(http.MethodPut, base+"/job-spec/fields", `{"position":"Senior Engineer","requirements":"X"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st = decode[jobspec.State](t, rec)
	assert.True(t, st.CanSubmit)
	assert.Equal(t, "X", st.Requirements)

	rec = api.json(http.MethodPost, base+"/job-spec/generate", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, flow.StatusGenerating, decode[jobspec.State](t, rec).Status)

	var view View
	require.Eventually(t, func() bool {
		view = decode[View](t, api.json(http.MethodGet, base, ""))
		return view.JobSpec != nil && view.JobSpec.Status == flow.StatusGenerated
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, view.JobSpec.Output, "# Senior Engineer - Job Specification")
	assert.Equal(t, []string{jobspec.ActionSaveDraft, jobspec.ActionUseSpecification}, view.JobSpec.Actions)

	rec = api.json(http.MethodGet, base+"/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Notifications []notify.Notification `json:"notifications"`
	}](t, rec)
	require.NotEmpty(t, got.Notifications)
	assert.Equal(t, "Job specification generated", got.Notifications[len(got.Notifications)-1].Title)
}

func TestHandlerGenerateMissingInput(t *testing.T) {
	api := newAPI(t, 0)
	id := api.createSession()

	rec := api.json(http.MethodPost, "/api/v1/sessions/"+id+"/job-spec/generate", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[respond.ErrorResponse](t, rec)
	assert.Equal(t, "missing_input", body.Error.Code)
}

func TestHandlerWrongTab(t *testing.T) {
	api := newAPI(t, 0)
	id := api.createSession()
	base := "/api/v1/sessions/" + id

	rec := api.json(http.MethodPut, base+"/tab", `{"tab":"interviews"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[View](t, rec)
	assert.Equal(t, TabInterviews, view.Tab)
	require.NotNil(t, view.Interview)

	rec = api.json(http.MethodPut, base+"/job-spec/mode", `{"mode":"upload"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "wrong_tab", decode[respond.ErrorResponse](t, rec).Error.Code)
}

func TestHandlerValidation(t *testing.T) {
	api := newAPI(t, 0)
	id := api.createSession()
	base := "/api/v1/sessions/" + id

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"bad mode", http.MethodPut, base + "/job-spec/mode", `{"mode":"auto"}`},
		{"bad tab", http.MethodPut, base + "/tab", `{"tab":"settings"}`},
		{"unknown template", http.MethodPut, base + "/job-spec/template", `{"templateId":"astronaut"}`},
		{"empty fields", http.MethodPut, base + "/job-spec/fields", `{}`},
		{"bad drag", http.MethodPost, base + "/job-spec/file/drag", `{"event":"hover"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.json(tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerJobSpecFileUploadAndDrop(t *testing.T) {
	api := newAPI(t, 0)
	id := api.createSession()
	base := "/api/v1/sessions/" + id

	rec := api.json(http.MethodPost, base+"/job-spec/file/drag", `{"event":"enter"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[jobspec.State](t, rec).FileView.DragActive)

	rec = api.upload(base+"/job-spec/file", "spec.pdf", "%PDF-1.4 spec body", "drop")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[jobspec.State](t, rec)
	require.NotNil(t, st.File)
	assert.Equal(t, "spec.pdf", st.File.Name)
	assert.Equal(t, "application/pdf", st.File.ContentType)
	assert.Equal(t, fileslot.ViewOccupied, st.FileView.Kind)
	assert.False(t, st.FileView.DragActive)
	assert.Equal(t, jobspec.PreviewFile, st.Preview)

	// A drop without files leaves the selection alone.
	rec = api.upload(base+"/job-spec/file", "", "", "drop")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[jobspec.State](t, rec)
	require.NotNil(t, st.File)
	assert.Equal(t, "spec.pdf", st.File.Name)

	// A picker result without files is a cancel and clears it.
	rec = api.upload(base+"/job-spec/file?source=picker", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[jobspec.State](t, rec).File)

	rec = api.upload(base+"/job-spec/file", "notes.txt", "plain text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.json(http.MethodDelete, base+"/job-spec/file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fileslot.ViewEmpty, decode[jobspec.State](t, rec).FileView.Kind)
}

func TestHandlerUploadTooLarge(t *testing.T) {
	api := newAPI(t, 512)
	id := api.createSession()

	rec := api.upload("/api/v1/sessions/"+id+"/job-spec/file", "big.pdf", strings.Repeat("a", 4096), "")
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "file_too_large", decode[respond.ErrorResponse](t, rec).Error.Code)
}

func TestHandlerInterviewUploadFlow(t *testing.T) {
	api := newAPI(t, 0)
	id := api.createSession()
	base := "/api/v1/sessions/" + id

	rec := api.json(http.MethodPut, base+"/tab", `{"tab":"interviews"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.upload(base+"/interview/files/portfolio", "x.pdf", "x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.upload(base+"/interview/files/job-spec", "spec.docx", "spec", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[interview.State](t, rec)
	assert.False(t, st.CanSubmit)

	rec = api.json(http.MethodPost, base+"/interview/files/cv/drag", `{"event":"over"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[interview.State](t, rec).CVView.DragActive)

	rec = api.upload(base+"/interview/files/cv", "cv.pdf", "%PDF-1.4 cv", "drop")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[interview.State](t, rec)
	assert.True(t, st.CanSubmit)
	assert.Empty(t, st.Actions)

	rec = api.json(http.MethodPost, base+"/interview/generate", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = api.json(http.MethodPut, base+"/interview/manual", `{"jobSpec":"edit"}`)
	if rec.Code != http.StatusOK {
		// Still generating: edits are rejected.
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "busy", decode[respond.ErrorResponse](t, rec).Error.Code)
	}

	var view View
	require.Eventually(t, func() bool {
		view = decode[View](t, api.json(http.MethodGet, base, ""))
		return view.Interview != nil && view.Interview.Status == flow.StatusGenerated
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, view.Interview.Questions, 10)
	assert.Equal(t, 1, view.Interview.Questions[0].ID)
	assert.Equal(t, []string{interview.ActionExport, interview.ActionSave}, view.Interview.Actions)

	rec = api.json(http.MethodDelete, base+"/interview/files/cv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[interview.State](t, rec).CVFile)
}

func TestHandlerUnknownAndDeletedSessions(t *testing.T) {
	api := newAPI(t, 0)

	rec := api.json(http.MethodGet, "/api/v1/sessions/0b6f8f5e-8f0e-4a8e-9b43-6c1f0f1d2a11", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := api.createSession()
	rec = api.json(http.MethodDelete, "/api/v1/sessions/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.json(http.MethodGet, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.json(http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGenerateMiddlewareOnlyWrapsGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager(t, Options{})
	r := gin.New()
	blocked := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
	NewHandler(m, 0).RegisterRoutes(r.Group("/api/v1"), blocked)
	api := &apiHarness{t: t, router: r}
	id := api.createSession()

	rec := api.json(http.MethodPut, "/api/v1/sessions/"+id+"/job-spec/mode", `{"mode":"upload"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.json(http.MethodPost, "/api/v1/sessions/"+id+"/job-spec/generate", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
