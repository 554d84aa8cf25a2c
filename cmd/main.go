package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pot-code/learning-gateway/internal/activity"
	"github.com/pot-code/learning-gateway/internal/apiclient"
	"github.com/pot-code/learning-gateway/internal/authoring"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	infra "github.com/pot-code/learning-gateway/internal/infrastructure"
	"github.com/pot-code/learning-gateway/internal/infrastructure/driver"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"github.com/pot-code/learning-gateway/internal/infrastructure/uuid"
	"github.com/pot-code/learning-gateway/internal/interfaces/rest"
	"github.com/pot-code/learning-gateway/internal/player"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	logger = logger.With(
		zap.String("service.id", option.AppID),
	)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.SetLoggerInContext(ctx, logger)

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		log.Fatalf("Failed to create DB connection: %s\n", err)
	}
	defer dbConn.Close(context.Background())
	logger.Debug("Create db connection instance", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)

	rdb := driver.NewRedisClient(&driver.KVConfig{
		Host:     option.KVStore.Host,
		Port:     option.KVStore.Port,
		Password: option.KVStore.Password,
		DB:       option.KVStore.DB,
	})
	defer rdb.Close()

	appMetrics := metrics.NewMetrics()
	platform := apiclient.NewClient(apiclient.Config{
		BaseURL:     option.Upstream.BaseURL,
		Timeout:     option.Upstream.Timeout,
		LongTimeout: option.Upstream.LongTimeout,
	}, appMetrics)

	ActivityRepo := activity.NewRepository(dbConn)
	ActivityUseCase := activity.NewUseCase(ActivityRepo)

	CurriculumUseCase := curriculum.NewUseCase(platform, ActivityUseCase, rdb, option.Cache.TTL, option.Upstream.LessonLimit)
	AuthoringService := authoring.NewService(CurriculumUseCase, platform, appMetrics, option.Session.TTL)

	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength, "ps_")
	PlayerManager := player.NewManager(CurriculumUseCase, platform, ActivityUseCase, UUIDGenerator, appMetrics, option.Session.TTL)
	go PlayerManager.Run(ctx, option.Session.SweepInterval)
	go AuthoringService.Run(ctx, option.Session.SweepInterval)

	app := rest.NewApp(option, &rest.Dependencies{
		DB:           dbConn,
		KV:           rdb,
		Upstream:     platform,
		Curriculum:   CurriculumUseCase,
		Certificates: platform,
		Authoring:    AuthoringService,
		Activity:     ActivityUseCase,
		Player:       PlayerManager,
		Metrics:      appMetrics,
	}, logger)
	if err := rest.Serve(ctx, app, option, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
	PlayerManager.Shutdown(context.Background())
}
