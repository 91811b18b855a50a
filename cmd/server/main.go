// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lastcard-club/lastcard/internal/auth"
	"github.com/lastcard-club/lastcard/internal/cache"
	"github.com/lastcard-club/lastcard/internal/database"
	"github.com/lastcard-club/lastcard/internal/handlers"
	"github.com/lastcard-club/lastcard/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		// Redis only feeds the historian; matches run fine without it.
		log.Printf("redis unavailable, action history disabled: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(middleware.LogMiddleware(logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: func() []string {
			if os.Getenv("LASTCARD_ENV") == "production" {
				return strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",")
			}
			return []string{"https://*", "http://*"}
		}(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	ms := handlers.NewMatchServer()

	// user endpoints
	r.Post("/user/create", handlers.CreateUserHandler)
	r.Post("/user/login", handlers.LoginHandler)
	r.Post("/user/claim", handlers.ClaimGuestHandler)

	// lobby endpoints
	r.Post("/lobby/create", handlers.CreateLobbyHandler(ms))
	r.Get("/lobby/list", handlers.ListLobbiesHandler(ms))
	r.HandleFunc("/lobby/ws/{id}", handlers.LobbyWSHandler(logger, ms))

	// match websocket
	r.HandleFunc("/match/ws/{id}", handlers.MatchWSHandler(logger, ms))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
