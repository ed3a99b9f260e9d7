package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bryanlje/clinic/consumer"
	"github.com/bryanlje/clinic/handlers"
	"github.com/bryanlje/clinic/middleware"
	"github.com/bryanlje/clinic/models"
	"github.com/bryanlje/clinic/monitoring"
	"github.com/bryanlje/clinic/recent"
	"github.com/bryanlje/clinic/utils"
)

func main() {
	logger := log.New(os.Stdout, "CLINIC: ", log.LstdFlags|log.Lshortfile)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := utils.InitSentry(dsn); err != nil {
			logger.Printf("Sentry init failed, continuing without it: %v", err)
		}
	}

	// Redis holds the recents list and the visit cache; wait for it with
	// retries since it usually comes up alongside this service
	var redisClient utils.RedisClient
	var err error
	maxRetries := 5
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		redisClient, err = utils.NewRedisClient()
		if err == nil {
			break
		}
		logger.Printf("Attempt %d: Failed to connect to Redis: %v", i+1, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		logger.Fatalf("Failed to initialize Redis after %d attempts: %v", maxRetries, err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Printf("Error closing Redis connection: %v", err)
		}
	}()

	repo, err := models.NewPostgresRepository()
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	esClient, err := utils.NewElasticsearchClient()
	if err != nil {
		logger.Printf("Elasticsearch unavailable, search falls back to the database: %v", err)
		esClient = nil
	}

	kafkaProducer, err := utils.NewKafkaProducer()
	if err != nil {
		logger.Printf("Kafka unavailable, visit events disabled: %v", err)
		kafkaProducer = nil
	} else {
		defer kafkaProducer.Close()
	}

	monitoring.Init()

	fileStore := utils.NewLocalFileStore()
	recents := recent.NewList(utils.KVStore{Client: redisClient})

	adminHandler := handlers.NewAdminHandler(repo)
	if err := adminHandler.EnsureDefaults(); err != nil {
		logger.Fatalf("Failed to seed admin defaults: %v", err)
	}
	patientHandler := handlers.NewPatientHandler(repo, esClient, recents)
	visitHandler := handlers.NewVisitHandler(repo, kafkaProducer, fileStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if kafkaProducer != nil {
		visitConsumer := consumer.NewVisitConsumer(redisClient, esClient)
		visitConsumer.Start(ctx)
		defer visitConsumer.Stop()
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.SentryMiddleware(),
		middleware.ErrorHandler(),
		middleware.PrometheusMetrics(),
	)

	router.GET("/metrics", gin.WrapH(monitoring.Handler()))
	router.Static("/uploads", uploadDir())

	api := router.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := redisClient.SetToCache(ctx, "healthcheck", "ping", 10*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "degraded",
					"details": gin.H{"redis": "unavailable"},
					"error":   err.Error(),
				})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"details": gin.H{"redis": "available"},
			})
		})

		api.POST("/patients", patientHandler.CreatePatient)
		api.GET("/patients/search", patientHandler.SearchPatients)
		api.GET("/patients/recent", patientHandler.RecentPatients)
		api.GET("/patients/:id", patientHandler.GetPatient)
		api.PUT("/patients/:id", patientHandler.UpdatePatient)

		api.POST("/visits", visitHandler.CreateVisit)
		api.PUT("/visits/:id", visitHandler.UpdateVisit)
		api.DELETE("/visits/:id", visitHandler.DeleteVisit)
		api.POST("/visits/:id/upload", visitHandler.UploadAttachment)
		api.DELETE("/attachments/:id", visitHandler.DeleteAttachment)

		admin := api.Group("/admin")
		{
			admin.POST("/pin/verify", adminHandler.VerifyPIN)
			admin.PUT("/pin", adminHandler.ChangePIN)
			admin.GET("/search-limit", adminHandler.GetSearchLimit)
			admin.PUT("/search-limit", adminHandler.SetSearchLimit)
			admin.POST("/backup", adminHandler.Backup)
			admin.GET("/export/medications", adminHandler.ExportMedications)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Printf("Server is running on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

func uploadDir() string {
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return "uploads"
}
