package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dragon-peak/quiz-game-service/internal/config"
	"github.com/dragon-peak/quiz-game-service/internal/services"
	"github.com/dragon-peak/quiz-game-service/internal/source"
	"github.com/dragon-peak/quiz-game-service/internal/utils"
	"github.com/dragon-peak/quiz-game-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	gameService services.GameService
	validator   *validator.Validator
}

type SelectAnswerRequest struct {
	AnswerID string `json:"answer_id" validate:"required"`
}

func NewSessionHandler(
	gameService services.GameService,
	v *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		gameService: gameService,
		validator:   v,
	}
}

// CreateSession starts a new game session
// @Summary Create game session
// @Description Resolves a question set (custom list, sample flag, or remote by learning object code) and starts a session
// @Tags sessions
// @Accept json
// @Produce json
// @Success 201 {object} models.SessionSnapshot
// @Failure 400 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	req := services.CreateSessionRequest{
		Config: config.SessionConfigFromParams(c.Request.URL.Query()),
	}

	// The body is optional: embedding hosts may post a custom question
	// list, everyone else drives the source via the query parameters.
	if c.Request.ContentLength > 0 {
		var body struct {
			Questions []source.LooseQuestion `json:"questions"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
		req.Questions = body.Questions
	}

	h.LogRequest(c, "Creating game session",
		"source", req.Config.Source,
		"learning_object_code", req.Config.LearningObjectCode,
		"custom_questions", len(req.Questions))

	snapshot, err := h.gameService.CreateSession(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

// GetSession returns the current session snapshot
// @Summary Get session snapshot
// @Tags sessions
// @Produce json
// @Success 200 {object} models.SessionSnapshot
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	snapshot, err := h.gameService.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// SelectAnswer records the player's selection without evaluating it.
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	var req SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	snapshot, err := h.gameService.SelectAnswer(c.Request.Context(), c.Param("id"), req.AnswerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Submit evaluates the current selection. Submitting twice, or with no
// selection, leaves the session unchanged.
func (h *SessionHandler) Submit(c *gin.Context) {
	snapshot, err := h.gameService.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Continue advances past an answered question or completes the session.
func (h *SessionHandler) Continue(c *gin.Context) {
	snapshot, err := h.gameService.Continue(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Restart resets the session for a fresh attempt.
func (h *SessionHandler) Restart(c *gin.Context) {
	h.LogRequest(c, "Restarting game session", "session_id", c.Param("id"))

	snapshot, err := h.gameService.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ImportQuestions accepts an xlsx workbook and starts a session over the
// imported custom list.
// @Summary Create session from Excel import
// @Tags sessions
// @Accept mpfd
// @Produce json
// @Success 201 {object} models.SessionSnapshot
// @Failure 400 {object} ErrorResponse
// @Router /sessions/import [post]
func (h *SessionHandler) ImportQuestions(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	questions, err := source.ImportQuestionsFromExcel(file, utils.ToSlogLogger(h.logger))
	if err != nil {
		if services.IsValidation(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid question workbook",
				Details: err.Error(),
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Creating game session from Excel import", "questions", len(questions))

	snapshot, err := h.gameService.CreateCustomSession(c.Request.Context(), questions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}
