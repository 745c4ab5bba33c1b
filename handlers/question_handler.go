package handlers

import (
	"net/http"

	"livetrivia/middleware"
	"livetrivia/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	questions *services.QuestionService
}

func NewQuestionHandler(questions *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questions.AddQuestion(c.Request.Context(), middleware.HostGameID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": question})
}

func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	questionID, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questions.UpdateQuestion(c.Request.Context(), middleware.HostGameID(c), questionID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
		return
	}

	if err := h.questions.DeleteQuestion(c.Request.Context(), middleware.HostGameID(c), questionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": questionID})
}

func (h *QuestionHandler) Reorder(c *gin.Context) {
	var req services.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.questions.Reorder(c.Request.Context(), middleware.HostGameID(c), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reordered": true})
}
