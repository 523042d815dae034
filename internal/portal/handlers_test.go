package portal

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenshotRequest(t *testing.T, payloadSize int) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("screenshot", "chart.png")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{0x1}, payloadSize))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/journal/t1/screenshot", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	user := &models.User{
		ID:           "u1",
		Role:         models.RoleStudent,
		Tier:         models.TierProfessional,
		ReviewStatus: models.ReviewNone,
	}
	return req.WithContext(context.WithValue(req.Context(), userContextKey, user))
}

func TestScreenshotUploadRejectsOversizedBody(t *testing.T) {
	p := &Portal{}
	w := httptest.NewRecorder()

	p.handleUploadScreenshot(w, screenshotRequest(t, maxScreenshotBytes+1))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "10MB limit")
}

func TestScreenshotUploadRequiresFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/journal/t1/screenshot", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	user := &models.User{ID: "u1", Role: models.RoleStudent, Tier: models.TierProfessional, ReviewStatus: models.ReviewNone}
	req = req.WithContext(context.WithValue(req.Context(), userContextKey, user))

	p := &Portal{}
	w := httptest.NewRecorder()
	p.handleUploadScreenshot(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
