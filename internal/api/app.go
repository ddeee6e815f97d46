package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/ssoriano/roomchat/internal/auth"
	"github.com/ssoriano/roomchat/internal/config"
	"github.com/ssoriano/roomchat/internal/database"
	"github.com/ssoriano/roomchat/internal/server"
)

type ChatApp struct {
	log            *log.Logger
	db             database.MessageRepository
	mux            *http.Server
	handler        http.Handler
	gw             *server.Gateway
	auth           *auth.TokenService
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, gw *server.Gateway, db database.MessageRepository, tokenService *auth.TokenService, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		gw:             gw,
		auth:           tokenService,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/chats/join", s.joinRoom)
	mux.Handle("GET /api/chats/messages", s.authMiddleware(s.getMessages))
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /ws/chat", s.serveWs)

	var h http.Handler = handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = handlers.LoggingHandler(logger.Writer(), h)
	h = s.errorHandler(h)
	s.handler = h

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
