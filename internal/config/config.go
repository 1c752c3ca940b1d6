package config

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Logger   Logger
	Worker   WorkerConfig
	HLS      HLSConfig
	Catalog  CatalogConfig
}

type ServerConfig struct {
	AppVersion      string
	Port            string
	Mode            string
	ServiceTokenKey string
}

type WorkerConfig struct {
	WorkerCount  int
	MaxCPUUsage  float64
	PollInterval int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	EventQueueKey string
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	DownloadHost string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

// HLSConfig carries the encoder knobs and the per-rendition bitrate caps.
// Bitrates are shorthand strings ("700k"); parsing happens in the planner.
type HLSConfig struct {
	CRF            string
	Preset         string
	SegmentSeconds int
	MaxRate360p    string
	MaxRate540p    string
	MaxRate720p    string
	MaxRate1080p   string
}

// CatalogConfig points at the external content service. BaseURL and Secret
// are hard preconditions for the worker: without them a finished manifest
// could never be linked back, so no job may begin.
type CatalogConfig struct {
	BaseURL        string `validate:"required,url"`
	Secret         string `validate:"required"`
	LookupRetries  int
	LookupInterval int
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hls.crf", "22")
	v.SetDefault("hls.preset", "veryfast")
	v.SetDefault("hls.segmentseconds", 6)
	v.SetDefault("hls.maxrate360p", "700k")
	v.SetDefault("hls.maxrate540p", "1200k")
	v.SetDefault("hls.maxrate720p", "2200k")
	v.SetDefault("hls.maxrate1080p", "4200k")
	v.SetDefault("catalog.lookupretries", 6)
	v.SetDefault("catalog.lookupinterval", 5)
	v.SetDefault("redis.eventqueuekey", "upload_events")
	v.SetDefault("worker.workercount", 1)
	v.SetDefault("worker.maxcpuusage", 80.0)
	v.SetDefault("worker.pollinterval", 5)
}

// ValidateCatalog runs the worker's fatal precondition check.
func (c *Config) ValidateCatalog() error {
	return validator.New().Struct(c.Catalog)
}
