package main

import (
	"context"
	"log"

	"livetrivia/config"
	"livetrivia/handlers"
	"livetrivia/middleware"
	"livetrivia/models"
	"livetrivia/routes"
	"livetrivia/services"
	"livetrivia/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	// Pick the session store. Postgres is the durable default; the
	// in-memory store keeps a single process self-contained.
	var sessionStore store.Store
	switch cfg.Storage {
	case "memory":
		sessionStore = store.NewMemStore()
		log.Printf("Using in-memory store; games will not survive a restart")
	default:
		db, err := config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		err = db.AutoMigrate(
			&models.Game{},
			&models.Question{},
			&models.Player{},
			&models.PlayerAnswer{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database: ", err)
		}
		sessionStore = store.NewGormStore(db)
	}

	redisClient := config.InitRedis(cfg)

	// Wire the engine: hub pushes, notifier debounces and polls, engine
	// drives the session state machine.
	hub := services.NewHub()
	go hub.Run()

	notifier := services.NewNotifier(hub, redisClient)
	engine := services.NewSessionEngine(sessionStore, redisClient, notifier)
	engine.SetRetention(cfg.Retention())
	questionService := services.NewQuestionService(sessionStore, engine)

	if redisClient != nil {
		go hub.RunRedisBridge(context.Background(), redisClient)
	}

	sweeper := services.NewSweeper(engine, cfg.Retention())
	go sweeper.Run(context.Background())

	gameHandler := handlers.NewGameHandler(engine, cfg.JWTSecret)
	questionHandler := handlers.NewQuestionHandler(questionService)

	router := gin.Default()
	router.Use(middleware.CORS())
	routes.SetupRoutes(router, gameHandler, questionHandler, hub, engine, cfg.JWTSecret)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
