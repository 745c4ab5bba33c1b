package routes

import (
	"log"
	"net/http"
	"strconv"

	"livetrivia/handlers"
	"livetrivia/middleware"
	"livetrivia/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the snapshot read is public; the socket carries no commands
	},
}

func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	questionHandler *handlers.QuestionHandler,
	hub *services.Hub,
	engine *services.SessionEngine,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		games := api.Group("/games")
		{
			// Public surface: create, join, read, answer, resume.
			games.POST("", gameHandler.CreateGame)
			games.POST("/:code/join", gameHandler.JoinGame)
			games.GET("/:code", gameHandler.GetSnapshot)
			games.POST("/:code/answers", gameHandler.SubmitAnswer)
			games.POST("/:code/host", gameHandler.ResumeHost)

			// Host-only commands, gated on the game's host token.
			host := games.Group("/:code", middleware.HostAuth(jwtSecret))
			{
				host.POST("/questions", questionHandler.AddQuestion)
				host.PUT("/questions/order", questionHandler.Reorder)
				host.PUT("/questions/:id", questionHandler.UpdateQuestion)
				host.DELETE("/questions/:id", questionHandler.DeleteQuestion)
				host.POST("/questions/:id/reset", gameHandler.ResetQuestion)

				host.POST("/activate", gameHandler.ActivateQuestion)
				host.POST("/advance", gameHandler.Advance)
				host.POST("/reveal", gameHandler.RevealAnswers)
				host.POST("/award", gameHandler.ManualAward)

				host.POST("/reset", gameHandler.ResetGame)
				host.POST("/end", gameHandler.EndGame)
				host.DELETE("", gameHandler.DeleteGame)
				host.DELETE("/players/:id", gameHandler.KickPlayer)
			}
		}
	}

	// WebSocket endpoint observers attach to for push signals. player_id
	// is 0 (or absent) for the host device.
	router.GET("/ws/:code", func(c *gin.Context) {
		code := c.Param("code")

		var playerID uint
		if raw := c.Query("player_id"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
				return
			}
			playerID = uint(parsed)
		}

		snapshot, err := engine.Snapshot(c.Request.Context(), code)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		if playerID != 0 && !playerInGame(snapshot, playerID) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "player not in game"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for game %s: %v", code, err)
			return
		}

		hub.RegisterClient(conn, snapshot.Game.Code, playerID)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func playerInGame(snapshot *services.GameSnapshot, playerID uint) bool {
	for _, player := range snapshot.Players {
		if player.ID == playerID {
			return true
		}
	}
	return false
}
