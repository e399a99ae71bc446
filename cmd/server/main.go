// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-audit-go/internal/audit"
	"doc-audit-go/internal/config"
	"doc-audit-go/internal/handler"
	"doc-audit-go/internal/matching"
	"doc-audit-go/internal/middleware"
	"doc-audit-go/internal/model"
	"doc-audit-go/internal/pipeline"
	"doc-audit-go/internal/repository"
	"doc-audit-go/internal/service"
	"doc-audit-go/pkg/database"
	"doc-audit-go/pkg/es"
	"doc-audit-go/pkg/kafka"
	"doc-audit-go/pkg/llm"
	"doc-audit-go/pkg/log"
	"doc-audit-go/pkg/parser"
	"doc-audit-go/pkg/storage"
	"doc-audit-go/pkg/tika"
	"doc-audit-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、ES 与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(&model.User{}, &model.Template{}, &model.Document{}, &model.FieldRecord{}); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	templateRepo := repository.NewTemplateRepository(database.DB)
	documentRepo := repository.NewDocumentRepository(database.DB)
	recordRepo := repository.NewFieldRecordRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	parserClient := parser.NewClient(cfg.Parser)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepo, jwtManager)
	templateService := service.NewTemplateService(templateRepo, llmClient)
	documentService := service.NewDocumentService(documentRepo, templateRepo, recordRepo)
	reviewService := service.NewReviewService(recordRepo)
	queryService := service.NewQueryService(recordRepo)
	askService := service.NewAskService(queryService, llmClient)

	// 6. 初始化匹配决策链与文档处理管道
	similarityEngine := matching.NewESSimilarityEngine(es.ESClient, cfg.Elasticsearch.TemplateIndex, cfg.Matching)
	scorer := matching.NewScorer(similarityEngine)
	classifier := matching.NewLLMClassifier(llmClient)
	matcher := matching.NewMatcher(
		templateRepo,
		scorer,
		classifier,
		matching.Thresholds{
			AutoAccept: cfg.Matching.AutoAcceptThreshold,
			MinSuggest: cfg.Matching.MinSuggestThreshold,
		},
		time.Duration(cfg.Matching.ClassifierTimeoutSeconds)*time.Second,
	)
	validator := audit.NewValidator()
	auditThresholds := audit.Thresholds{
		LowConfidence:  cfg.Audit.LowConfidence,
		HighConfidence: cfg.Audit.HighConfidence,
	}
	processor := pipeline.NewProcessor(
		documentRepo,
		templateRepo,
		recordRepo,
		tikaClient,
		parserClient,
		matcher,
		validator,
		auditThresholds,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", handler.NewUserHandler(userService).GetProfile)
				authed.POST("/logout", handler.NewUserHandler(userService).Logout)
			}
		}

		// Document 路由组，需要认证
		documents := apiV1.Group("/documents")
		documents.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			docHandler := handler.NewDocumentHandler(documentService)
			reviewHandler := handler.NewReviewHandler(reviewService)
			documents.POST("/upload", docHandler.Upload)
			documents.GET("", docHandler.List)
			documents.GET("/:id", docHandler.Get)
			documents.POST("/:id/confirm", docHandler.Confirm)
			documents.POST("/:id/reextract", docHandler.Reextract)
			documents.GET("/:id/download", docHandler.GenerateDownloadURL)
			documents.GET("/:id/review", reviewHandler.ListOpen)
			documents.GET("/:id/review/count", reviewHandler.OpenCount)
		}

		// Review 路由组，需要认证
		review := apiV1.Group("/review")
		review.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			review.POST("/:recordId/verify", handler.NewReviewHandler(reviewService).Verify)
		}

		// Query 路由组，需要认证
		query := apiV1.Group("/query")
		query.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			query.POST("", handler.NewQueryHandler(queryService).Execute)
		}

		// Ask 路由 (WebSocket)
		askHandler := handler.NewAskHandler(askService, userService, jwtManager)
		askGroup := apiV1.Group("/ask")
		{
			askGroup.GET("/websocket-token", askHandler.GetWebsocketStopToken)
		}
		r.GET("/ask/:token", askHandler.Handle)

		// 模板管理路由组，需要同时通过认证和管理员授权两个中间件
		templates := apiV1.Group("/templates")
		templates.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			tplHandler := handler.NewTemplateHandler(templateService)
			// 读操作对所有登录用户开放
			templates.GET("", tplHandler.List)
			templates.GET("/:id", tplHandler.Get)

			// 写操作仅限管理员
			admin := templates.Group("/")
			admin.Use(middleware.AdminAuthMiddleware())
			{
				admin.POST("", tplHandler.Create)
				admin.PUT("/:id", tplHandler.Update)
				admin.DELETE("/:id", tplHandler.Delete)
				admin.POST("/draft", tplHandler.DraftSchema)
				admin.POST("/reindex", tplHandler.Reindex)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在程序退出时自然结束。
	log.Info("服务已优雅关闭")
}
