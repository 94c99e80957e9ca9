package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labpulse-service/internal/app/config"
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/delivery/http/routers"
	"labpulse-service/internal/app/drivers/database"
	"labpulse-service/internal/app/drivers/logger"
	"labpulse-service/internal/app/drivers/messaging"
	"labpulse-service/internal/app/drivers/storage"
	"labpulse-service/internal/app/services/aianalysis"
	"labpulse-service/internal/app/services/alerts"
	"labpulse-service/internal/app/services/batches"
	"labpulse-service/internal/app/services/labreports"
	"labpulse-service/internal/app/services/operator"
	"labpulse-service/internal/app/services/patients"
	"labpulse-service/internal/app/services/shared/labqueue"
	"labpulse-service/internal/app/services/shared/locker"
	"labpulse-service/internal/app/services/shared/notifications"
	"labpulse-service/internal/app/services/shared/realtime"
	redisRepo "labpulse-service/internal/app/services/shared/redis"
	storageService "labpulse-service/internal/app/services/shared/storage"
	"labpulse-service/internal/app/workers"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()

	accessLog := logger.NewLogrusLogger(internalConfig)
	zapLog := logger.NewZapLogger(driverConfig, internalConfig)
	defer zapLog.Sync()

	location, err := time.LoadLocation(internalConfig.App.Timezone)
	if err != nil {
		zapLog.Fatal("error loading timezone", zap.Error(err))
	}
	time.Local = location

	mongoClient := database.NewMongoDB(driverConfig)
	mongoDatabase := mongoClient.Database(driverConfig.MongoDB.DbName)
	redisClient := database.NewRedisClient(driverConfig)
	rabbitConn := messaging.NewRabbitMQ(driverConfig)
	minioClient := storage.NewMinio(driverConfig)

	chiRouter := chi.NewRouter()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	pools := bootstrapTheApp(config.Bootstrap{
		Router:         chiRouter,
		MongoDB:        mongoDatabase,
		Redis:          redisClient,
		RabbitMQ:       rabbitConn,
		Minio:          minioClient,
		Logger:         accessLog,
		ZapLogger:      zapLog,
		DriverConfig:   driverConfig,
		InternalConfig: internalConfig,
	})

	for _, pool := range pools {
		if err := pool.Start(workerCtx); err != nil {
			zapLog.Fatal("worker pool failed to start",
				zap.String("pool", pool.Name),
				zap.Error(err),
			)
		}
	}

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: chiRouter,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed to start", zap.Error(err))
		}
	}()
	zapLog.Info("server listening", zap.String("addr", internalConfig.App.Port))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	zapLog.Info("shutting down, draining in-flight requests and jobs")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeoutInSeconds),
	)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Fatal("server forced to shutdown", zap.Error(err))
	}

	stopWorkers()
	for _, pool := range pools {
		pool.Wait()
	}

	zapLog.Info("server exiting")
}

func bootstrapTheApp(bootstrap config.Bootstrap) []*workers.Pool {
	zapLog := bootstrap.ZapLogger

	// Shared infrastructure
	redisRepository := redisRepo.NewRedisRepository(bootstrap.Redis)
	lockerService := locker.NewLockService(redisRepository, zapLog)
	snapshotStore := realtime.NewSnapshotStore(redisRepository)

	labQueueService, err := labqueue.NewService(bootstrap.RabbitMQ, zapLog)
	if err != nil {
		zapLog.Fatal("error initializing job queues", zap.Error(err))
	}
	notificationService, err := notifications.NewNotificationService(bootstrap.RabbitMQ, zapLog)
	if err != nil {
		zapLog.Fatal("error initializing notification queues", zap.Error(err))
	}
	diagnosticsArchive := storageService.NewDiagnosticsArchive(bootstrap.Minio, bootstrap.DriverConfig.Minio.BucketName, zapLog)

	// Collaborators
	directoryClient := patients.NewDirectoryClient(bootstrap.InternalConfig.Directory.BaseUrl, zapLog)
	dashboardClient := patients.NewDashboardClient(bootstrap.InternalConfig.Dashboard.BaseUrl, zapLog)

	// Realtime
	hub := realtime.NewHub(directoryClient, snapshotStore, zapLog)

	// Batches
	batchRepository := batches.NewBatchMongoRepository(bootstrap.MongoDB)
	batchUsecase := batches.NewBatchUsecase(batchRepository, labQueueService, lockerService, hub, snapshotStore, zapLog)
	batchController := batches.NewBatchController(zapLog, batchUsecase)

	// Lab reports
	labReportRepository := labreports.NewLabReportMongoRepository(bootstrap.MongoDB)
	labReportUsecase := labreports.NewLabReportUsecase(labReportRepository, directoryClient, dashboardClient, labQueueService, hub, snapshotStore, zapLog)

	// Alerts
	alertRepository := alerts.NewAlertMongoRepository(bootstrap.MongoDB)
	alertUsecase := alerts.NewAlertUsecase(alertRepository, directoryClient, notificationService, hub, snapshotStore, zapLog)
	alertController := alerts.NewAlertController(zapLog, alertUsecase)

	// AI analysis
	sessionRepository := aianalysis.NewSessionMongoRepository(bootstrap.MongoDB)
	modelClient := aianalysis.NewModelHTTPClient(bootstrap.InternalConfig.Models, zapLog)
	analysisUsecase := aianalysis.NewAnalysisUsecase(
		sessionRepository,
		labReportRepository,
		modelClient,
		lockerService,
		diagnosticsArchive,
		labQueueService,
		hub,
		snapshotStore,
		bootstrap.InternalConfig.Models,
		zapLog,
	)
	analysisController := aianalysis.NewAnalysisController(zapLog, analysisUsecase)

	// Operator
	operatorController := operator.NewOperatorController(zapLog, labQueueService)

	// HTTP surface
	mw := middlewares.NewMiddlewares(zapLog, bootstrap.InternalConfig)
	routers.SetupRoutes(
		bootstrap.Router,
		bootstrap.InternalConfig,
		mw,
		bootstrap.Logger,
		batchController,
		alertController,
		analysisController,
		operatorController,
		hub,
	)

	// Worker pools
	labResultPool := workers.NewLabResultPool(labQueueService, labReportUsecase, batchUsecase, zapLog)
	alertPool := workers.NewAlertPool(labQueueService, alertUsecase, zapLog)
	analysisPool := workers.NewAnalysisPool(labQueueService, analysisUsecase, sessionRepository, zapLog)

	labResultPool.Concurrency = bootstrap.InternalConfig.Queue.LabResultConcurrency
	alertPool.Concurrency = bootstrap.InternalConfig.Queue.AlertConcurrency
	analysisPool.Concurrency = bootstrap.InternalConfig.Queue.AnalysisConcurrency

	return []*workers.Pool{labResultPool, alertPool, analysisPool}
}
