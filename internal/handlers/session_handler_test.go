package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dragon-peak/quiz-game-service/internal/events"
	"github.com/dragon-peak/quiz-game-service/internal/models"
	"github.com/dragon-peak/quiz-game-service/internal/services"
	"github.com/dragon-peak/quiz-game-service/internal/source"
	"github.com/dragon-peak/quiz-game-service/internal/utils"
	"github.com/dragon-peak/quiz-game-service/internal/validator"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewDevelopmentLogger()
	slogger := utils.ToSlogLogger(logger)
	publisher := events.NewMockEventPublisher(slogger)
	resolver := source.NewResolver(nil, time.Second, slogger)
	v := validator.New()
	gameService := services.NewGameService(resolver, v, publisher, time.Minute, slogger)

	router := gin.New()
	NewHandlerManager(gameService, v, logger).SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body string) (*httptest.ResponseRecorder, models.SessionSnapshot) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var snap models.SessionSnapshot
	if w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	}
	return w, snap
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSession_Sample(t *testing.T) {
	router := setupTestRouter(t)

	w, snap := doJSON(t, router, http.MethodPost, "/api/v1/sessions?sample=true", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, models.SourceSample, snap.SourceMode)
	require.NotNil(t, snap.CurrentQuestion)
	assert.NotEmpty(t, snap.CurrentQuestion.Answers)
}

func TestCreateSession_CustomBody(t *testing.T) {
	router := setupTestRouter(t)

	body := `{
		"questions": [
			{
				"question": "Custom one",
				"answers": ["a", "b"],
				"correct_index": 0
			}
		]
	}`
	w, snap := doJSON(t, router, http.MethodPost, "/api/v1/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.SourceCustom, snap.SourceMode)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "Custom one", snap.CurrentQuestion.Prompt)
}

func TestCreateSession_MalformedBody(t *testing.T) {
	router := setupTestRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/sessions", `{"questions": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession_NotFound(t *testing.T) {
	router := setupTestRouter(t)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectAnswer_Validation(t *testing.T) {
	router := setupTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/sessions?sample=true", "")

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/select", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionRoundTrip(t *testing.T) {
	router := setupTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/sessions?sample=true", "")
	base := "/api/v1/sessions/" + created.SessionID

	w, snap := doJSON(t, router, http.MethodPost, base+"/select", `{"answer_id": "1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", snap.SelectedAnswerID)

	w, snap = doJSON(t, router, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, snap.IsAnswered)

	w, snap = doJSON(t, router, http.MethodPost, base+"/continue", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, snap.CurrentQuestionIndex)

	w, snap = doJSON(t, router, http.MethodPost, base+"/restart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, snap.CurrentQuestionIndex)
	assert.False(t, snap.IsAnswered)

	w, snap = doJSON(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.SessionID, snap.SessionID)
}

func TestImportQuestions(t *testing.T) {
	router := setupTestRouter(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"question", "answer_a", "answer_b", "correct"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Imported question", "yes", "no", "a"}))
	workbook, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "questions.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, models.SourceCustom, snap.SourceMode)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "Imported question", snap.CurrentQuestion.Prompt)
}

func TestImportQuestions_MissingFile(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/import", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSession_DefaultsToSample(t *testing.T) {
	router := setupTestRouter(t)

	w, snap := doJSON(t, router, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.SourceSample, snap.SourceMode)
	require.NotNil(t, snap.CurrentQuestion)
}

func TestCompletedSessionConflicts(t *testing.T) {
	router := setupTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/sessions?sample=true", "")
	base := "/api/v1/sessions/" + created.SessionID

	set := source.SampleQuestionSet()
	snap := created
	for !snap.GameComplete {
		q := set.Questions[snap.CurrentQuestionIndex]
		correctID := q.Answers[*q.CorrectIndex].ID

		w, _ := doJSON(t, router, http.MethodPost, base+"/select", `{"answer_id": "`+correctID+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
		w, _ = doJSON(t, router, http.MethodPost, base+"/submit", "")
		require.Equal(t, http.StatusOK, w.Code)
		w, snap = doJSON(t, router, http.MethodPost, base+"/continue", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, _ := doJSON(t, router, http.MethodPost, base+"/continue", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = doJSON(t, router, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, snap = doJSON(t, router, http.MethodPost, base+"/restart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, snap.GameComplete)
}
