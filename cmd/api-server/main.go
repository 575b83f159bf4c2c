package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/stratumhq/sitepay-api/api/swagger"
	"github.com/stratumhq/sitepay-api/internal/handler"
	"github.com/stratumhq/sitepay-api/internal/middleware"
	"github.com/stratumhq/sitepay-api/internal/models"
	"github.com/stratumhq/sitepay-api/internal/repository"
	"github.com/stratumhq/sitepay-api/internal/service"
	"github.com/stratumhq/sitepay-api/pkg/cache"
	"github.com/stratumhq/sitepay-api/pkg/config"
	"github.com/stratumhq/sitepay-api/pkg/database"
	"github.com/stratumhq/sitepay-api/pkg/jobs"
	"github.com/stratumhq/sitepay-api/pkg/logger"
	corsmiddleware "github.com/stratumhq/sitepay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/stratumhq/sitepay-api/pkg/middleware/requestid"
)

// @title SitePay API
// @version 1.0.0
// @description Payroll, loan and approval workflow engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled || cfg.Notifications.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	ruleRepo := repository.NewComponentRuleRepository(db)
	salaryRepo := repository.NewSalaryRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	chainRepo := repository.NewApprovalChainRepository(db)

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	var publisher service.EventPublisher = service.NopEventPublisher{}
	if cfg.Notifications.Enabled && cacheRepo != nil {
		publisher = service.NewRedisEventPublisher(cacheRepo, cfg.Notifications.ChannelPrefix, logr)
	}

	registry, err := service.NewApproverRegistry(service.DefaultApproverResolvers(employeeRepo, userRepo))
	if err != nil {
		logr.Sugar().Fatalw("invalid approver registry", "error", err)
	}
	resolver := service.NewChainResolver(chainRepo)
	engine := service.NewApprovalEngine(resolver, registry, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "sitepay-api",
	})

	payrollSvc := service.NewPayrollService(
		employeeRepo, attendanceRepo, ruleRepo, salaryRepo, loanRepo,
		engine, publisher, cacheSvc, metrics, logr,
		service.PayrollServiceConfig{
			AllowNegativeNet:     cfg.Payroll.AllowNegativeNet,
			RequiredMonthlyHours: cfg.Payroll.RequiredMonthlyHours,
		})

	loanSvc := service.NewLoanService(
		loanRepo, employeeRepo, service.NewInstallmentScheduler(),
		engine, publisher, metrics, logr)

	runSvc := service.NewPayrollRunService(employeeRepo, salaryRepo, payrollSvc, metrics, logr)
	runQueue := jobs.NewQueue("payroll-run", runSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.PayrollRun.WorkerConcurrency,
		MaxRetries: cfg.PayrollRun.WorkerRetries,
		RetryDelay: cfg.PayrollRun.RetryDelay,
		Logger:     logr,
	})
	runQueue.Start(ctx)
	defer runQueue.Stop()
	runSvc.BindQueue(runQueue)

	payslipSvc := service.NewPayslipService(salaryRepo, employeeRepo, logr)
	chainAdminSvc := service.NewChainAdminService(chainRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	payrollHandler := handler.NewPayrollHandler(payrollSvc, runSvc, payslipSvc)
	loanHandler := handler.NewLoanHandler(loanSvc)
	approvalHandler := handler.NewApprovalHandler(chainAdminSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	payroll := protected.Group("/payroll")
	payroll.POST("/calculate", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHRManager), payrollHandler.Calculate)
	payroll.POST("/run", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHRManager), payrollHandler.Run)
	payroll.GET("/register", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHRManager, models.RoleFinanceManager, models.RoleGeneralManager), payrollHandler.Register)
	payroll.GET("/register.csv", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHRManager, models.RoleFinanceManager), payrollHandler.RegisterCSV)
	payroll.GET("/pending", payrollHandler.Pending)
	payroll.GET("/:id", payrollHandler.Get)
	payroll.POST("/:id/approve", payrollHandler.Approve)
	payroll.POST("/:id/reject", payrollHandler.Reject)
	payroll.GET("/:id/payslip.pdf", payrollHandler.Payslip)

	loans := protected.Group("/loans")
	loans.POST("", loanHandler.Submit)
	loans.GET("/:id", loanHandler.Get)
	loans.POST("/:id/approve", loanHandler.Approve)
	loans.POST("/:id/reject", loanHandler.Reject)
	loans.POST("/:id/payments", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleFinanceManager), loanHandler.RecordPayment)
	loans.POST("/:id/postponements", loanHandler.Postpone)

	postponements := protected.Group("/loan-postponements")
	postponements.POST("/:id/approve", loanHandler.ApprovePostponement)
	postponements.POST("/:id/reject", loanHandler.RejectPostponement)

	chains := protected.Group("/approval-chains")
	chains.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHRManager))
	chains.POST("", approvalHandler.CreateLevel)
	chains.GET("", approvalHandler.List)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
