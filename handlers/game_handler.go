package handlers

import (
	"net/http"
	"strconv"

	"livetrivia/middleware"
	"livetrivia/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	engine    *services.SessionEngine
	jwtSecret string
}

func NewGameHandler(engine *services.SessionEngine, jwtSecret string) *GameHandler {
	return &GameHandler{engine: engine, jwtSecret: jwtSecret}
}

// CreateGame makes a new session and hands the caller its host token.
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.engine.CreateGame(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := middleware.NewHostToken(h.jwtSecret, game.ID, game.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue host token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game": game, "host_token": token})
}

type resumeHostRequest struct {
	Password string `json:"password" binding:"required"`
}

// ResumeHost re-issues the host token when the game's password matches.
func (h *GameHandler) ResumeHost(c *gin.Context) {
	var req resumeHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.engine.VerifyHost(c.Request.Context(), c.Param("code"), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := middleware.NewHostToken(h.jwtSecret, game.ID, game.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue host token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game, "host_token": token})
}

func (h *GameHandler) JoinGame(c *gin.Context) {
	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.engine.JoinGame(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"player": player})
}

// GetSnapshot is the single read every observer uses.
func (h *GameHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.engine.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.SubmitAnswer(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": true})
}

type activateRequest struct {
	Index int `json:"index"`
}

func (h *GameHandler) ActivateQuestion(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.ActivateQuestion(c.Request.Context(), middleware.HostGameID(c), req.Index); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activated": req.Index})
}

type advanceRequest struct {
	NextIndex int `json:"next_index"`
}

func (h *GameHandler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.Advance(c.Request.Context(), middleware.HostGameID(c), req.NextIndex); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanced": req.NextIndex})
}

type revealRequest struct {
	QuestionID uint `json:"question_id" binding:"required"`
}

func (h *GameHandler) RevealAnswers(c *gin.Context) {
	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.RevealAnswers(c.Request.Context(), middleware.HostGameID(c), req.QuestionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revealed": req.QuestionID})
}

func (h *GameHandler) ManualAward(c *gin.Context) {
	var req services.ManualAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.ManualAward(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"awarded": true})
}

func (h *GameHandler) ResetQuestion(c *gin.Context) {
	questionID, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
		return
	}

	if err := h.engine.ResetQuestion(c.Request.Context(), middleware.HostGameID(c), questionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": questionID})
}

func (h *GameHandler) ResetGame(c *gin.Context) {
	if err := h.engine.ResetGame(c.Request.Context(), middleware.HostGameID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (h *GameHandler) EndGame(c *gin.Context) {
	if err := h.engine.EndGame(c.Request.Context(), middleware.HostGameID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ended": true})
}

func (h *GameHandler) DeleteGame(c *gin.Context) {
	if err := h.engine.DeleteGame(c.Request.Context(), middleware.HostGameID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *GameHandler) KickPlayer(c *gin.Context) {
	playerID, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	if err := h.engine.KickPlayer(c.Request.Context(), middleware.HostGameID(c), playerID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kicked": playerID})
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	return uint(id), err
}
