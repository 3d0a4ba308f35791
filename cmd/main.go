package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notebook-client/internal/backend"
	"notebook-client/internal/config"
	"notebook-client/internal/handler"
	"notebook-client/internal/notebook"
	"notebook-client/internal/service"
	"notebook-client/internal/storage"
	"notebook-client/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	store, audio, err := storage.New(cfg.Storage.Type, cfg.Storage.DataDir, cfg.Storage.CacheSize)
	if err != nil {
		logger.Fatalf("Failed to create storage: %v", err)
	}
	if err := store.Init(); err != nil {
		logger.Fatalf("Failed to init storage: %v", err)
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, cfg.Backend.StreamTimeout)
	nb := notebook.NewContext()

	chatService := service.NewChatService(client, store, nb, service.ChatOptions{
		HandshakeTimeout: cfg.Chat.HandshakeTimeout,
		Language:         cfg.Chat.Language,
		TitleLength:      cfg.Chat.TitleLength,
	})
	noteService := service.NewNoteService(client, audio, nb, service.NoteOptions{
		PollInterval: cfg.Notes.PollInterval,
	})

	router := setupRouter(cfg,
		handler.NewChatHandler(chatService, cfg.Server.Heartbeat),
		handler.NewNotebookHandler(nb, chatService, noteService),
		handler.NewNoteHandler(noteService, audio),
	)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.WithFields(logger.Fields{"port": cfg.Server.Port, "backend": cfg.Backend.BaseURL}).Info("Gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	chatService.Close()
	noteService.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Errorf("Closing storage failed: %v", err)
	}
	logger.Info("Server stopped")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, notebookHandler *handler.NotebookHandler, noteHandler *handler.NoteHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()))
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	handler.Register(router.Group("/api"), chatHandler, notebookHandler, noteHandler)
	return router
}
