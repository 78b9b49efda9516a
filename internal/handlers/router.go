package handlers

import (
	"net/http"
	"time"

	"promptmatch-backend/internal/middleware"
	"promptmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Services holds everything the HTTP layer calls into
type Services struct {
	Identity *services.IdentityService
	Accounts *services.AccountService
	Photos   *services.PhotoService
	Prompts  *services.PromptService
	Feed     *services.FeedService
	Swipes   *services.SwipeService
	Matches  *services.MatchService
	Chat     *services.ChatService
}

// NewRouter wires every route. requestTimeout bounds the plain HTTP routes, not the WebSocket.
func NewRouter(svc Services, requestTimeout time.Duration) http.Handler {
	accountHandler := NewAccountHandler(svc.Accounts)
	photoHandler := NewPhotoHandler(svc.Photos)
	promptHandler := NewPromptHandler(svc.Prompts)
	feedHandler := NewFeedHandler(svc.Feed, svc.Swipes)
	matchHandler := NewMatchHandler(svc.Matches, svc.Chat)
	wsHandler := NewWebSocketHandler(svc.Identity, svc.Chat)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route, authenticated by query token
		r.Get("/ws/matches/{match_id}", wsHandler.HandleChat)

		// Protected routes
		r.Group(func(r chi.Router) {
			if requestTimeout > 0 {
				r.Use(chiMiddleware.Timeout(requestTimeout))
			}
			r.Use(middleware.AuthMiddleware(svc.Identity))

			r.Post("/accounts", accountHandler.CreateAccount)
			r.Get("/me", accountHandler.GetProfile)
			r.Patch("/me", accountHandler.UpdateProfile)
			r.Post("/me/photo", photoHandler.RequestUpload)
			r.Get("/invites", accountHandler.ListInvites)
			r.Post("/invites", accountHandler.CreateInvite)

			r.Get("/prompts/today", promptHandler.Today)
			r.Put("/prompts/today/response", promptHandler.Answer)

			r.Get("/feed", feedHandler.GetFeed)
			r.Post("/swipes", feedHandler.RecordSwipe)

			r.Get("/matches", matchHandler.ListMatches)
			r.Get("/matches/{match_id}", matchHandler.GetMatch)
			r.Get("/matches/{match_id}/messages", matchHandler.ListMessages)
			r.Post("/matches/{match_id}/messages", matchHandler.SendMessage)
		})
	})

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
