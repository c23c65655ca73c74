package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sulafhq/sulaf-backend/internal/handlers"
	"github.com/sulafhq/sulaf-backend/internal/middleware"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/ws"
)

type RouterConfig struct {
	HealthcheckHandler *handlers.HealthcheckHandler
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	BookHandler        *handlers.BookHandler
	SearchHandler      *handlers.SearchHandler
	AcquireHandler     *handlers.AcquireHandler
	StoryHandler       *handlers.StoryHandler
	Hub                *ws.Hub
	Media              *storage.MediaStore
	AllowOrigins       []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Media produced by the pipelines is served directly.
	router.Static("/uploads", cfg.Media.Root()+"/uploads")
	router.Static("/books", cfg.Media.BooksDir())

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		api.GET("/books", cfg.BookHandler.ListBooks)
		api.GET("/books/:id", cfg.BookHandler.GetBook)
		api.GET("/categories", cfg.BookHandler.Categories)
		api.GET("/authors", cfg.BookHandler.Authors)
		api.GET("/search/external", cfg.SearchHandler.ExternalSearch)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Catalog interactions
	protected.POST("/books/:id/read", cfg.BookHandler.ReadBook)
	protected.POST("/books/:id/like", cfg.BookHandler.LikeBook)
	protected.POST("/books/:id/download", cfg.BookHandler.DownloadBook)
	// Acquisition jobs
	protected.POST("/download-external", cfg.AcquireHandler.CreateBookRequest)
	protected.GET("/requests", cfg.AcquireHandler.ListBookRequests)
	protected.GET("/requests/:id", cfg.AcquireHandler.GetBookRequest)
	// Story generation jobs
	protected.POST("/ai/generate-story", cfg.StoryHandler.CreateStory)
	protected.GET("/ai/stories", cfg.StoryHandler.ListStories)
	protected.GET("/ai/stories/:id", cfg.StoryHandler.GetStory)
	// Job event stream
	protected.GET("/ws", cfg.Hub.Handle)

	return router
}
