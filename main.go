package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"chat-connector/internal/config"
	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/handlers"
	"chat-connector/internal/infra/logger"
	"chat-connector/internal/infra/provider"
	"chat-connector/internal/infra/repository"
	"chat-connector/internal/infra/routes"
	"chat-connector/internal/infra/services"
	"chat-connector/internal/middleware"
	client "chat-connector/internal/pkg"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc"
)

func main() {
	config.LoadEnv()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(ctx, cfg.LogLevel, cfg.LogJSON)

	db, err := client.SQLiteClient(cfg.DatabasePath)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store, err := repository.NewSQLiteStore(db)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to initialize store: %v", err))
	}

	httpClient := &http.Client{}

	providerFactory := provider.NewFactory(log, cfg, httpClient)
	whisperProvider := provider.NewWhisperProvider(log, httpClient, cfg.WhisperHost)

	registry := services.NewTurnRegistry()

	var conversationSvc Iservices.IConversationService = services.NewConversationService(store, providerFactory, log, cfg.DefaultModel)
	var documentSvc Iservices.IDocumentService = services.NewDocumentService(store, log, cfg.DocContextLimit)

	promptBuilder := services.NewPromptBuilder(documentSvc, log, cfg.HistoryTokenBudget)

	var turnSvc Iservices.ITurnService = services.NewTurnService(
		store, providerFactory, registry, conversationSvc, promptBuilder, log, cfg.EmptyTurnPlaceholder)
	var voiceSvc Iservices.IVoiceService = services.NewVoiceService(
		store, whisperProvider, turnSvc, conversationSvc, log, cfg.FFmpegBin)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))

	chatHandlers := handlers.NewChatHandlers(log, turnSvc)
	conversationHandlers := handlers.NewConversationHandlers(log, conversationSvc)
	voiceHandlers := handlers.NewVoiceHandlers(log, voiceSvc)

	routes := routes.NewRoutes(router, chatHandlers, conversationHandlers, voiceHandlers)
	routes.Init()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info(fmt.Sprintf("Server is running on port %s", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(fmt.Sprintf("Error running HTTP server: %s", err))
			os.Exit(1)
		}
	})

	<-stop
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	} else {
		log.Info("Server stopped gracefully.")
	}
	wg.Wait()
}
