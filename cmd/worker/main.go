package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/parishmedia/hls-encoder/internal/catalog"
	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/encoder"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/internal/mediastore/repository"
	"github.com/parishmedia/hls-encoder/internal/pipeline"
	"github.com/parishmedia/hls-encoder/pkg/db/aws"
	"github.com/parishmedia/hls-encoder/pkg/db/postgres"
	clientRedis "github.com/parishmedia/hls-encoder/pkg/db/redis"
	"github.com/parishmedia/hls-encoder/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	// Without the catalog endpoint a finished manifest can never be linked
	// back, so refuse to start instead of encoding into the void.
	if err = cfg.ValidateCatalog(); err != nil {
		appLogger.Fatalf("catalog config incomplete: %v", err)
	}

	var jobsRepo mediastore.JobsRepository
	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Warnf("could not connect to db, running without dedup ledger: %s", err)
	} else {
		appLogger.Infof("db connected, status: %#v", psqlDB.Stats())
		defer psqlDB.Close()
		jobsRepo = repository.NewJobsRepo(psqlDB)
	}

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()
	appLogger.Infof("redis connected")

	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	awsRepo := repository.NewAwsRepository(s3Client, presignClient, cfg.S3.DownloadHost)
	redisRepo := repository.NewEventRedisRepo(redisClient)

	catalogClient := catalog.NewClient(cfg.Catalog)
	reconciler := catalog.NewReconciler(catalogClient, cfg.Catalog, appLogger)
	enc := encoder.NewFFmpegEncoder(cfg.HLS, appLogger)

	p := pipeline.NewPipeline(cfg, appLogger, awsRepo, jobsRepo, enc, reconciler, catalogClient)
	w := pipeline.NewWorker(cfg, appLogger, redisRepo, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Infof("shutting down workers")
		cancel()
	}()

	w.Start(ctx)
	w.Wait()
}
