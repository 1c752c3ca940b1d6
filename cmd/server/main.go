package main

import (
	"log"

	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/server"
	"github.com/parishmedia/hls-encoder/pkg/db/aws"
	"github.com/parishmedia/hls-encoder/pkg/db/postgres"
	"github.com/parishmedia/hls-encoder/pkg/db/redis"
	"github.com/parishmedia/hls-encoder/pkg/logger"
)

func main() {
	log.Println("Starting ingest server")
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

	// The ledger is optional for the API: without it the job status
	// endpoint is disabled but events still flow.
	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Warnf("could not connect to db, job ledger disabled: %s", err)
		psqlDB = nil
	} else {
		appLogger.Infof("db connected, status: %#v", psqlDB.Stats())
		defer psqlDB.Close()
	}

	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()
	appLogger.Infof("redis connected")

	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	s := server.NewServer(cfg, psqlDB, redisClient, s3Client, presignClient, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Fatalf("could not start server: %s", err)
	}
}
