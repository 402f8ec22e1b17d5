package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-adp-admin/api/swagger"
	"github.com/noah-isme/sma-adp-admin/internal/client"
	"github.com/noah-isme/sma-adp-admin/internal/handler"
	"github.com/noah-isme/sma-adp-admin/internal/i18n"
	internalmiddleware "github.com/noah-isme/sma-adp-admin/internal/middleware"
	"github.com/noah-isme/sma-adp-admin/internal/models"
	"github.com/noah-isme/sma-adp-admin/internal/repository"
	"github.com/noah-isme/sma-adp-admin/internal/service"
	"github.com/noah-isme/sma-adp-admin/internal/web"
	"github.com/noah-isme/sma-adp-admin/pkg/cache"
	"github.com/noah-isme/sma-adp-admin/pkg/config"
	"github.com/noah-isme/sma-adp-admin/pkg/export"
	"github.com/noah-isme/sma-adp-admin/pkg/jobs"
	"github.com/noah-isme/sma-adp-admin/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-admin/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-admin/pkg/middleware/requestid"
	"github.com/noah-isme/sma-adp-admin/pkg/storage"
)

// @title SMA ADP Admin
// @version 0.2.0
// @description Students dashboard of the school admin front end
// @BasePath /
// @schemes http

const (
	jobExportCleanup = "exports.cleanup"
	jobSessionSweep  = "sessions.sweep"
)

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Students.CacheTTL, logr, redisClient != nil)

	var (
		sessions    service.SessionRepository
		memSessions *repository.MemorySessionRepository
	)
	if redisClient != nil {
		sessions = repository.NewRedisSessionRepository(redisClient, cfg.Session.TTL)
	} else {
		memSessions = repository.NewMemorySessionRepository(cfg.Session.TTL)
		sessions = memSessions
		logr.Sugar().Warnw("redis disabled, page state is kept in process memory")
	}

	studentAPI, err := client.NewStudentClient(cfg.StudentAPI.BaseURL, cfg.StudentAPI.Timeout, nil, metricsSvc)
	if err != nil {
		logr.Sugar().Fatalw("invalid student api configuration", "error", err)
	}
	querySvc := service.NewStudentQueryService(studentAPI, cacheSvc, cfg.Students.CacheTTL, logr)

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(studentAPI, fileStore, signer, export.NewRegistry(), metricsSvc, service.ExportConfig{
		DownloadPrefix: "/exports",
		ResultTTL:      cfg.Exports.SignedURLTTL,
	}, logr)

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})
	if !authSvc.Verifies() {
		logr.Sugar().Warnw("JWT_SECRET not set, access tokens are decoded without signature checks")
	}

	catalog, err := i18n.NewCatalog(cfg.Locale.Default)
	if err != nil {
		logr.Sugar().Fatalw("failed to load translations", "error", err)
	}

	pageSvc := service.NewStudentPageService(sessions, querySvc, studentAPI, exportSvc, metricsSvc, validator.New(),
		service.StudentPageConfig{
			SearchDebounce: cfg.Students.SearchDebounce,
			SubmitTimeout:  cfg.StudentAPI.Timeout + 10*time.Second,
		}, logr)
	defer pageSvc.Close()

	pageHandler := handler.NewStudentPageHandler(pageSvc, handler.StudentPageOptions{
		Links:    web.Links{Base: cfg.Students.FrontendBaseURL},
		LoginURL: cfg.JWT.LoginURL,
		Catalog:  catalog,
	}, logr)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readinessChecks(cacheRepo, redisClient != nil))

	housekeeping := jobs.NewQueue("housekeeping", jobs.QueueConfig{Workers: 1, Logger: logr})
	housekeeping.Handle(jobExportCleanup, func(context.Context, jobs.Job) error {
		_, err := exportSvc.Cleanup(cfg.Exports.SignedURLTTL)
		return err
	})
	if memSessions != nil {
		housekeeping.Handle(jobSessionSweep, func(context.Context, jobs.Job) error {
			if n := memSessions.Sweep(); n > 0 {
				logr.Debug("expired sessions removed", zap.Int("count", n))
			}
			return nil
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, sessionFields))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	tmpl, err := web.Templates()
	if err != nil {
		logr.Sugar().Fatalw("failed to parse templates", "error", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/students")
	})

	protected := r.Group("/")
	protected.Use(internalmiddleware.Session(internalmiddleware.SessionOptions{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	}))
	protected.Use(internalmiddleware.Locale(catalog))
	protected.Use(internalmiddleware.JWT(authSvc, cfg.JWT.LoginURL))
	protected.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))

	students := protected.Group("/students")
	students.GET("", pageHandler.Page)
	students.GET("/table", pageHandler.Table)
	students.GET("/state", pageHandler.State)
	students.POST("/search", pageHandler.Search)
	students.POST("/page", pageHandler.SetPage)
	students.POST("/selection/all", pageHandler.SelectAll)
	students.POST("/selection/rows/:id", pageHandler.ToggleRow)
	students.POST("/rows/:id/delete", pageHandler.OpenDelete)
	students.POST("/delete/confirm", pageHandler.ConfirmDelete)
	students.POST("/delete/cancel", pageHandler.CancelDelete)
	students.POST("/export", pageHandler.Export)
	students.GET("/export/snapshot", pageHandler.Snapshot)

	protected.GET("/exports/:token", exportHandler.Download)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	housekeeping.Start(ctx)
	defer housekeeping.Stop()
	if err := housekeeping.Every(cfg.Exports.CleanupInterval, jobExportCleanup); err != nil {
		logr.Sugar().Warnw("export cleanup not scheduled", "error", err)
	}
	if memSessions != nil {
		if err := housekeeping.Every(time.Minute, jobSessionSweep); err != nil {
			logr.Sugar().Warnw("session sweep not scheduled", "error", err)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "student_api", cfg.StudentAPI.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func readinessChecks(cacheRepo *repository.CacheRepository, redisEnabled bool) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{}
	if redisEnabled {
		checks["redis"] = cacheRepo.Ping
	}
	return checks
}

func sessionFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	if sid := internalmiddleware.SessionID(c); sid != "" {
		fields = append(fields, zap.String("session_id", sid))
	}
	if claims, ok := internalmiddleware.Claims(c); ok {
		fields = append(fields, zap.String("user_id", claims.UserID))
	}
	return fields
}
