package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/unitwatch/inventory-backend/internal/api/http"
	"github.com/unitwatch/inventory-backend/internal/api/http/middleware"
	invhttp "github.com/unitwatch/inventory-backend/internal/inventory/http"
)

// SetGinMode switches gin to release mode outside development. Debug mode
// stays on everywhere else so route listings show up in local logs.
func SetGinMode(env string) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
	Redis       *redis.Client

	Configs invhttp.ConfigStore
	Changes invhttp.ChangeStore
	Scanner invhttp.ScanRunner
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	inventoryHandler := invhttp.New(dep.Configs, dep.Changes, dep.Scanner)
	inventoryHandler.Register(api.Group("/inventory"))

	return r
}
