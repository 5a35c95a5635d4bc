package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/kredo/internal/config"
	obsmetrics "github.com/smallbiznis/kredo/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/kredo/internal/pricing/domain"
	"github.com/smallbiznis/kredo/internal/ratelimit"
	referraldomain "github.com/smallbiznis/kredo/internal/referral/domain"
	signupdomain "github.com/smallbiznis/kredo/internal/signup/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/kredo/internal/usageevent/domain"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	genID       *snowflake.Node
	walletSvc   walletdomain.Service
	pricingSvc  pricingdomain.Service
	referralSvc referraldomain.Service
	signupSvc   signupdomain.Service
	tenantSvc   tenantdomain.Service
	usageSvc    usagedomain.Service
	limiter     *ratelimit.TokenBucket
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	GenID       *snowflake.Node
	WalletSvc   walletdomain.Service
	PricingSvc  pricingdomain.Service
	ReferralSvc referraldomain.Service
	SignupSvc   signupdomain.Service
	TenantSvc   tenantdomain.Service
	UsageSvc    usagedomain.Service
	Limiter     *ratelimit.TokenBucket `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		genID:       p.GenID,
		walletSvc:   p.WalletSvc,
		pricingSvc:  p.PricingSvc,
		referralSvc: p.ReferralSvc,
		signupSvc:   p.SignupSvc,
		tenantSvc:   p.TenantSvc,
		usageSvc:    p.UsageSvc,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/signup", s.Signup)
	v1.POST("/webhooks/payment", s.rateLimit("webhook", s.cfg.Wallet.WebhookRatePerSec, s.cfg.Wallet.WebhookBurst), s.PaymentWebhook)

	wallet := v1.Group("/wallet", s.RequireTenant())
	wallet.GET("/balance", s.GetBalance)
	wallet.GET("/history", s.GetHistory)
	wallet.GET("/usage/24h", s.GetUsage24h)
	wallet.GET("/usage/events", s.ListUsageEvents)
	wallet.POST("/deduct", s.rateLimit("deduct", s.cfg.Wallet.DeductRatePerSec, s.cfg.Wallet.DeductBurst), s.DeductCredits)

	pricing := v1.Group("/pricing", s.RequireTenant())
	pricing.POST("/estimate", s.EstimateCost)

	referrals := v1.Group("/referrals", s.RequireTenant())
	referrals.GET("/stats", s.GetReferralStats)

	events := v1.Group("/events", s.RequireTenant())
	events.POST("/activation", s.HandleActivation)

	admin := v1.Group("/admin")
	admin.POST("/adjustments", s.AdjustBalance)
	admin.POST("/credits", s.AddCredits)
	admin.GET("/pricing-rule", s.GetPricingRule)
	admin.PUT("/pricing-rule", s.UpdatePricingRule)
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
