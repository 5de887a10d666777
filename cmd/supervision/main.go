package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/supervision/internal/audit"
	entityapp "github.com/wyfcoding/supervision/internal/entity/application"
	entitydomain "github.com/wyfcoding/supervision/internal/entity/domain"
	entityinfra "github.com/wyfcoding/supervision/internal/entity/infrastructure"
	entityhttp "github.com/wyfcoding/supervision/internal/entity/interfaces/http"
	"github.com/wyfcoding/supervision/internal/judge"
	notificationapp "github.com/wyfcoding/supervision/internal/notification/application"
	notificationdomain "github.com/wyfcoding/supervision/internal/notification/domain"
	notificationinfra "github.com/wyfcoding/supervision/internal/notification/infrastructure"
	notificationhttp "github.com/wyfcoding/supervision/internal/notification/interfaces/http"
	"github.com/wyfcoding/supervision/internal/realtime"
	reportapp "github.com/wyfcoding/supervision/internal/report/application"
	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
	reportmemory "github.com/wyfcoding/supervision/internal/report/infrastructure/persistence/memory"
	reportmysql "github.com/wyfcoding/supervision/internal/report/infrastructure/persistence/mysql"
	reporthttp "github.com/wyfcoding/supervision/internal/report/interfaces/http"
	userapp "github.com/wyfcoding/supervision/internal/user/application"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
	userinfra "github.com/wyfcoding/supervision/internal/user/infrastructure"
	userhttp "github.com/wyfcoding/supervision/internal/user/interfaces/http"
	"github.com/wyfcoding/supervision/pkg/config"
	"github.com/wyfcoding/supervision/pkg/db"
	"github.com/wyfcoding/supervision/pkg/logger"
	"github.com/wyfcoding/supervision/pkg/metrics"
	"github.com/wyfcoding/supervision/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/supervision/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	logger.Info(ctx, "starting service", "service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	// 3. 初始化指标
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "failed to start metrics server", "error", err)
		}
	}

	// 4. 初始化存储：mysql 做自动迁移，memory 用于演示模式
	var (
		database         *db.DB
		reports          reportdomain.ReportRepository
		users            userdomain.UserRepository
		notificationRepo notificationdomain.NotificationRepository
		entities         entitydomain.EntityRepository
	)
	if cfg.Database.Driver == "mysql" {
		database, err = db.Init(db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to connect to database", "error", err)
		}
		if err := database.AutoMigrate(
			&reportmysql.ReportModel{},
			&userinfra.UserModel{},
			&notificationinfra.NotificationModel{},
			&entityinfra.EntityModel{},
		); err != nil {
			logger.Fatal(ctx, "failed to migrate database", "error", err)
		}
		reports = reportmysql.NewReportRepository(database.DB)
		users = userinfra.NewUserRepository(database.DB)
		notificationRepo = notificationinfra.NewNotificationRepository(database.DB)
		entities = entityinfra.NewEntityRepository(database.DB)
	} else {
		reports = reportmemory.NewReportRepository()
		users = userinfra.NewMemoryUserRepository()
		notificationRepo = notificationinfra.NewMemoryNotificationRepository()
		memEntities := entityinfra.NewMemoryEntityRepository()
		if err := entityinfra.SeedDemoEntities(ctx, memEntities); err != nil {
			logger.Fatal(ctx, "failed to seed demo entities", "error", err)
		}
		entities = memEntities
	}

	// 5. 判定提供方：内置规则引擎或远端 DeepSeek 兼容接口，统一套上审计装饰器
	recorder := buildRecorder(ctx, cfg)
	defer recorder.Close()
	var provider judge.Provider
	switch cfg.Judge.Provider {
	case "remote":
		provider = judge.NewRemoteProvider(judge.RemoteOptions{
			BaseURL:       cfg.Judge.BaseURL,
			APIKey:        cfg.Judge.APIKey,
			ValidateModel: cfg.Judge.ValidateModel,
			AnalyzeModel:  cfg.Judge.AnalyzeModel,
			ComposeModel:  cfg.Judge.ComposeModel,
			Timeout:       time.Duration(cfg.Judge.Timeout) * time.Second,
		})
	default:
		provider = judge.NewRulesProvider()
	}
	provider = judge.NewAuditedProvider(provider, recorder, m)

	// 6. 依赖注入
	hub := realtime.NewHub(m.RealtimeSubscribers)
	gateway := userinfra.NewJWTGateway(cfg.Auth.SecretKey, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authSvc := userapp.NewAuthService(gateway, users)
	adminSvc := userapp.NewAdminService(users)

	dispatcher := notificationapp.NewDispatcher(notificationRepo, users, provider, hub, m)
	notificationQuery := notificationapp.NewQueryService(notificationRepo)

	submitSvc := reportapp.NewSubmitService(reports, entities, extract.NewExtractor(), provider, dispatcher, m)
	reviewSvc := reportapp.NewReviewService(reports, dispatcher, m)
	reportQuery := reportapp.NewQueryService(reports)
	directorySvc := entityapp.NewDirectoryService(entities)

	// 7. HTTP 路由
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinRateLimitMiddleware(middleware.NewRateLimiter(200, 100)),
		httpMetricsMiddleware(m),
	)
	engine.MaxMultipartMemory = cfg.HTTP.MaxUploadMB << 20

	engine.GET("/health", healthHandler(provider, reports, m))

	protected := engine.Group("")
	protected.Use(middleware.GinAuthMiddleware(func(c *gin.Context, token string) error {
		user, err := authSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			return err
		}
		c.Set(userhttp.ContextUserKey, user)
		return nil
	}))

	reporthttp.NewReportHandler(submitSvc, reviewSvc, reportQuery).RegisterRoutes(protected)
	userhttp.NewUserHandler(adminSvc).RegisterRoutes(protected)
	notificationhttp.NewNotificationHandler(notificationQuery).RegisterRoutes(protected)
	entityhttp.NewEntityHandler(directorySvc).RegisterRoutes(protected)
	realtime.NewStreamHandler(hub, func(c *gin.Context) (string, bool) {
		user, ok := userhttp.CurrentUser(c)
		if !ok {
			return "", false
		}
		return user.UserID, true
	}).RegisterRoutes(protected)

	// 8. 启动 HTTP 服务
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	// 9. 优雅关停
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "http shutdown failed", "error", err)
	}
	if database != nil {
		if err := database.Close(); err != nil {
			logger.Error(ctx, "database close failed", "error", err)
		}
	}
	logger.Info(ctx, "server stopped")
}

// healthHandler 健康检查：判定提供方可达性与待审核数量
func healthHandler(provider judge.Provider, reports reportdomain.ReportRepository, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		judgeStatus := "ok"
		if err := provider.Health(ctx); err != nil {
			judgeStatus = err.Error()
		}

		pending, err := reports.CountPending(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		if m != nil {
			m.ReportsPending.Set(float64(pending))
		}

		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"judge":           judgeStatus,
			"reports_pending": pending,
		})
	}
}

func httpMetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.HTTPRequestsTotal.Inc()
		m.HTTPRequestDuration.Observe(time.Since(start).Seconds())
	}
}

// buildRecorder 按配置组装审计输出
func buildRecorder(ctx context.Context, cfg *config.Config) audit.Recorder {
	newFile := func() audit.Recorder {
		r, err := audit.NewFileRecorder(cfg.Audit.FilePath)
		if err != nil {
			logger.Fatal(ctx, "failed to open audit file", "path", cfg.Audit.FilePath, "error", err)
		}
		return r
	}

	switch cfg.Audit.Sink {
	case "file":
		return newFile()
	case "kafka":
		return audit.NewKafkaRecorder(cfg.Audit.Brokers, cfg.Audit.Topic)
	case "both":
		return audit.MultiRecorder{newFile(), audit.NewKafkaRecorder(cfg.Audit.Brokers, cfg.Audit.Topic)}
	default:
		return audit.NopRecorder{}
	}
}
