package main

import (
	"context"
	"log"
	"net/http"

	"github/newsanalyzer/api/config"
	"github/newsanalyzer/api/controller"
	"github/newsanalyzer/api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// Register the Unidoc license after config load so a key kept in .env works.
	services.InitDocumentLicenses(cfg.UnidocLicense)

	// Create Gemini client
	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	// Prompt template with optional on-disk override and hot reload.
	promptStore := services.NewPromptStore(cfg.PromptPath)
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if cfg.PromptPath != "" {
		go promptStore.Watch(watchCtx)
	}

	// Use the proper constructor functions
	analyzer := services.NewAnalyzerService(geminiClient, promptStore, cfg.GeminiModel, cfg.APITimeout, cfg.MaxArticleChars)
	analysisController := controller.NewAnalysisController(analyzer, cfg.MaxFileSize)

	router := setupRouter(cfg, analysisController)

	// Start the Server
	log.Printf("Go Gin backend server starting on http://localhost:%s", cfg.Port)
	log.Printf("Health check available at: http://localhost:%s/health", cfg.Port)
	log.Printf("API endpoint: POST http://localhost:%s/analyze", cfg.Port)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with middleware and routes.
func setupRouter(cfg *config.Config, analysisController *controller.AnalysisController) *gin.Engine {
	router := gin.Default()

	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware(cfg.CORSOrigins))

	// Add health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "AI News Analyzer",
			"version": "1.0.0",
		})
	})

	router.POST("/analyze", analysisController.Analyze)

	return router
}

// requestIDMiddleware tags every request with an ID for log correlation,
// honoring an ID supplied by the caller.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("requestID", requestID)
		c.Next()
	}
}

// corsMiddleware allows cross-origin requests from the configured origins.
// An entry of "*" allows any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
