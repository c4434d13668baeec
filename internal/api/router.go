package api

import (
	"github.com/TKim713/bee-smart-backend-sub000/internal/api/handlers"
	"github.com/TKim713/bee-smart-backend-sub000/internal/api/middleware"
	"github.com/TKim713/bee-smart-backend-sub000/internal/config"
	"github.com/TKim713/bee-smart-backend-sub000/internal/repository"
	"github.com/TKim713/bee-smart-backend-sub000/internal/service"
	"github.com/TKim713/bee-smart-backend-sub000/internal/websocket"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/database"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/logger"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Server 라우터와 백그라운드 컴포넌트 핸들
type Server struct {
	Router            *gin.Engine
	BattleService     *service.BattleService
	InvitationService *service.InvitationService
}

// SetupServer API 라우터 및 컴포넌트 조립
func SetupServer(cfg *config.Config, db *database.DB) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Repository 초기화
	userRepo := repository.NewUserRepository(db)
	battleRepo := repository.NewBattleRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	questionRepo := repository.NewQuestionRepository(db)

	// WebSocket Hub 초기화 및 시작 (연결 레지스트리)
	wsHub := websocket.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Service 초기화
	userService := service.NewUserService(userRepo)

	battleService := service.NewBattleService(
		battleRepo,
		questionRepo,
		userRepo,
		wsHub,
		wsHub,
		service.BattleServiceConfig{
			QuestionCount: cfg.BattleQuestionCount,
			ScoreReward:   cfg.BattleScoreReward,
			Timeout:       cfg.BattleTimeout,
			SweepInterval: cfg.BattleSweepInterval,
		},
	)

	matchmakingService := service.NewMatchmakingService(battleService)

	invitationService := service.NewInvitationService(
		invitationRepo,
		userRepo,
		battleService,
		wsHub,
		service.InvitationServiceConfig{
			TTL:           cfg.InvitationTTL,
			SweepInterval: cfg.InvitationSweepInterval,
			SendLimit:     cfg.InvitationSendLimit,
			SendWindow:    cfg.InvitationSendWindow,
		},
	)

	// Gateway 초기화 (프로토콜 디코딩 전용)
	gateway := websocket.NewGateway(wsHub, matchmakingService, battleService)

	// Handler 초기화
	authHandler := handlers.NewAuthHandler(userService, cfg)
	battleHandler := handlers.NewBattleHandler(battleService)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, gateway)

	// 초대 발신 Rate Limit (Redis가 설정되면 분산, 아니면 프로세스 로컬)
	invitationLimit := invitationRateLimit(cfg)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint
		v1.GET("/ws", middleware.Auth(cfg), wsHandler.HandleWebSocket)

		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}

		// Battle routes
		battles := v1.Group("/battles")
		battles.Use(middleware.Auth(cfg))
		{
			battles.GET("/history", battleHandler.GetHistory)
			battles.GET("/:id", battleHandler.GetBattle)
			battles.POST("/:id/end", battleHandler.EndBattle)
		}

		// Invitation routes
		invitations := v1.Group("/invitations")
		invitations.Use(middleware.Auth(cfg))
		{
			invitations.POST("", invitationLimit, invitationHandler.SendInvitation)
			invitations.GET("/pending", invitationHandler.ListPendingInvitations)
			invitations.GET("/sent", invitationHandler.ListSentInvitations)
			invitations.POST("/:id/accept", invitationHandler.AcceptInvitation)
			invitations.POST("/:id/decline", invitationHandler.DeclineInvitation)
			invitations.POST("/:id/cancel", invitationHandler.CancelInvitation)
		}
	}

	return &Server{
		Router:            router,
		BattleService:     battleService,
		InvitationService: invitationService,
	}
}

// invitationRateLimit 초대 HTTP 엔드포인트 보호용 미들웨어
// 서비스 자체 쿼터(발신 한도)와 별개로 과도한 요청을 먼저 거른다
func invitationRateLimit(cfg *config.Config) gin.HandlerFunc {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("Invalid REDIS_URL, falling back to local rate limiting", "error", err)
		} else {
			client := redis.NewClient(opts)
			limiter := ratelimit.NewRedisRateLimiter(client, "ratelimit:invitations:", 30, cfg.InvitationSendWindow)
			return middleware.RedisRateLimit(middleware.RedisRateLimitConfig{
				Limiter: limiter,
				Limit:   30,
				Window:  cfg.InvitationSendWindow,
			})
		}
	}

	return middleware.RateLimit(middleware.RateLimitConfig{
		Capacity:   30,
		RefillRate: 1,
	})
}
