package handler

import (
	"log/slog"
	"net/http"

	"strategist/internal/middleware"
	"strategist/internal/model"
	"strategist/internal/service"
	"strategist/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Strategy routes: the API path and the path the original web form posts to.
var strategyPaths = []string{"/api/strategy", "/.netlify/functions/get-strategy"}

type Deps struct {
	Strategist   *service.StrategistService
	Auth         *service.AuthService
	Tokens       *middleware.Tokens
	Ledger       store.Ledger
	Log          *slog.Logger
	AllowOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), middleware.RequestLog(d.Log))
	r.Use(cors.New(corsConfig(d.AllowOrigins)))
	r.NoMethod(func(c *gin.Context) { c.String(http.StatusMethodNotAllowed, "Method Not Allowed") })

	strategyH := NewStrategyHandler(d.Strategist, d.Auth, d.Ledger, d.Log)
	authH := NewAuthHandler(d.Auth, d.Tokens)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{Status: "ok", Provider: d.Strategist.Ready()})
	})
	r.POST("/api/unlock", authH.Unlock)
	for _, p := range strategyPaths {
		r.POST(p, middleware.BearerAuth(d.Tokens), strategyH.GetStrategy)
		r.OPTIONS(p, strategyH.Options)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:             []string{"X-New-Token", middleware.HeaderRequestID},
		OptionsResponseStatusCode: http.StatusOK,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
