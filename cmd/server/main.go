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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stratflow-go/internal/config"
	"stratflow-go/internal/handler"
	"stratflow-go/internal/middleware"
	"stratflow-go/internal/pipeline"
	"stratflow-go/internal/repository"
	"stratflow-go/internal/service"
	"stratflow-go/pkg/database"
	"stratflow-go/pkg/es"
	"stratflow-go/pkg/kafka"
	"stratflow-go/pkg/llm"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/storage"
	"stratflow-go/pkg/tika"
	"stratflow-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("STRATFLOW_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和外部服务
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis)
	bucket := storage.InitMinIO(cfg.MinIO)
	nodeIndex, err := es.InitES(cfg.Elasticsearch)
	if err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Repository
	enterpriseRepo := repository.NewEnterpriseRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)
	processRepo := repository.NewProcessRepository(database.DB)
	departmentRepo := repository.NewDepartmentRepository(database.DB)
	strategyRepo := repository.NewStrategyRepository(database.DB)
	padRepo := repository.NewPADRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.RDB)
	reviewRepo := repository.NewReviewRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	llmClient := llm.NewClient(cfg.LLM)

	enterpriseService := service.NewEnterpriseService(enterpriseRepo, processRepo, producer, cfg.Security)
	userService := service.NewUserService(userRepo, tokenRepo, jwtManager, cfg.Security)
	processService := service.NewProcessService(processRepo, producer, tikaClient, bucket, llmClient)
	departmentService := service.NewDepartmentService(departmentRepo, processRepo)
	strategyService := service.NewStrategyService(strategyRepo)
	padService := service.NewPADService(padRepo, departmentRepo, userRepo)
	workspaceService := service.NewWorkspaceService(processService, departmentService, strategyService, userService, padService, bucket)
	reviewService := service.NewReviewService(llmClient, reviewRepo)
	searchService := service.NewSearchService(nodeIndex)

	if err := enterpriseService.Seed(cfg.Seed); err != nil {
		log.Errorf("初始化演示租户失败: %v", err)
	}

	// 6. 启动后台 Kafka 消费者，把发布的流程写入检索索引
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	processor := pipeline.NewProcessor(processRepo, nodeIndex)
	consumer := kafka.NewConsumer(cfg.Kafka, processor, database.RDB)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(consumerCtx)
	}()

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(maxBody(cfg.Server.MaxBodyMB), middleware.RequestLogger(), middleware.Metrics(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	enterpriseHandler := handler.NewEnterpriseHandler(enterpriseService)
	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	processHandler := handler.NewProcessHandler(processService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	strategyHandler := handler.NewStrategyHandler(strategyService)
	padHandler := handler.NewPADHandler(padService)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService)
	reviewHandler := handler.NewReviewHandler(reviewService, userService, jwtManager)
	searchHandler := handler.NewSearchHandler(searchService)

	authRequired := middleware.AuthMiddleware(jwtManager, userService)
	adminOnly := middleware.AdminAuthMiddleware()

	// 8. 注册路由
	api := r.Group("/api")
	{
		enterprises := api.Group("/enterprises")
		{
			enterprises.GET("", enterpriseHandler.List)
			enterprises.POST("", enterpriseHandler.Create)
			enterprises.DELETE("/:name", authRequired, adminOnly, enterpriseHandler.Delete)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refreshToken", authHandler.RefreshToken)
			auth.POST("/logout", authRequired, authHandler.Logout)
		}

		users := api.Group("/users")
		users.Use(authRequired)
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Save)
			users.GET("/me", userHandler.GetProfile)
			users.PUT("/me/password", userHandler.ChangePassword)
			users.DELETE("/:id", adminOnly, userHandler.Delete)
			users.POST("/:id/reset-password", adminOnly, userHandler.ResetPassword)
		}

		ws := api.Group("/workspace")
		ws.Use(authRequired)
		{
			procs := ws.Group("/processes/:entId")
			{
				procs.GET("", processHandler.List)
				procs.POST("", processHandler.Save)
				procs.POST("/new", processHandler.Create)
				procs.GET("/catalog", processHandler.Catalog)
				procs.DELETE("/:procId", processHandler.Delete)

				proc := procs.Group("/:procId")
				{
					proc.GET("/level", processHandler.Level)
					proc.POST("/nodes", processHandler.AddNode)
					proc.PATCH("/nodes/:nodeId", processHandler.UpdateNode)
					proc.DELETE("/nodes/:nodeId", processHandler.DeleteNode)
					proc.PUT("/nodes/:nodeId/position", processHandler.MoveNode)
					proc.PUT("/nodes/:nodeId/sipoc/:field", processHandler.SetSIPOCField)
					proc.POST("/nodes/:nodeId/standard/import", processHandler.ImportStandard)
					proc.POST("/links/toggle", processHandler.ToggleLink)
					proc.POST("/publish", processHandler.Publish)
					proc.POST("/rollback/:historyId", processHandler.Rollback)
					proc.POST("/sketch", processHandler.ImportSketch)
				}
			}

			depts := ws.Group("/departments/:entId")
			{
				depts.GET("", departmentHandler.ListFlat)
				depts.POST("", departmentHandler.SaveFlat)
				depts.GET("/tree", departmentHandler.Tree)
				depts.GET("/roles", departmentHandler.Roles)
				depts.POST("/units", departmentHandler.AddUnit)
				depts.DELETE("/units/:deptId", departmentHandler.RemoveUnit)
				depts.POST("/units/:deptId/roles", departmentHandler.AddRole)
				depts.DELETE("/units/:deptId/roles/:role", departmentHandler.RemoveRole)
				depts.POST("/units/:deptId/okrs", departmentHandler.AddOKR)
				depts.PATCH("/units/:deptId/okrs/:okrId", departmentHandler.UpdateOKR)
			}

			strategy := ws.Group("/strategy/:entId")
			{
				strategy.GET("", strategyHandler.Get)
				strategy.POST("", strategyHandler.Save)
				strategy.POST("/okrs", strategyHandler.AddOKR)
			}

			pads := ws.Group("/pads/:entId")
			{
				pads.GET("", padHandler.List)
				pads.POST("", padHandler.SaveAll)
				pads.PUT("/entry", padHandler.Upsert)
				pads.GET("/okrs", padHandler.AlignableOKRs)
			}

			ws.GET("/search/:entId", searchHandler.Search)
			ws.GET("/:entId", workspaceHandler.Load)
			ws.POST("/:entId", workspaceHandler.Save)
			ws.GET("/:entId/export", workspaceHandler.Export)
		}

		ai := api.Group("/ai")
		{
			ai.POST("/okr-review", authRequired, reviewHandler.OKRReview)
			ai.POST("/pad-review", authRequired, reviewHandler.PADReview)
			ai.GET("/history", authRequired, reviewHandler.History)
			ai.GET("/review-token", authRequired, reviewHandler.GetStopToken)
			// WebSocket 无法携带授权头，token 放在路径中
			ai.GET("/stream/:token", reviewHandler.Stream)
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

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warnf("Kafka 消费者未能在超时前退出")
	}
	log.Info("服务已优雅关闭")
}

// maxBody 限制请求体大小，mb 不大于 0 时不限制。
func maxBody(mb int) gin.HandlerFunc {
	limit := int64(mb) << 20
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
