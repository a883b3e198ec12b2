package config

import "time"

type Config struct {
	Server     ServerConfig     `json:"server"`
	Upload     UploadConfig     `json:"upload"`
	Storage    StorageConfig    `json:"storage"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Database   Database         `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	S3         S3Config         `json:"s3"`
	Sentry     SentryConfig     `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type UploadConfig struct {
	MaxRequestBodyMB     int64 `json:"max_request_body"`
	MaxMultipartMemoryMB int64 `json:"max_multipart_memory"`
}

type StorageConfig struct {
	UploadDir string `json:"upload_dir"` // content-addressed input store
	OutputDir string `json:"output_dir"` // converted artifacts
}

type DispatcherConfig struct {
	Workers            int `json:"workers"`              // concurrent job dispatches
	QueueSize          int `json:"queue_size"`           // pending dispatch backlog
	StrategyTimeoutSec int `json:"strategy_timeout_sec"` // per strategy, not per job
}

// Database selects the durable job store; an empty DSN keeps jobs in memory.
type Database struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DatabaseID   int           `json:"database_id"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// S3Config enables the output mirror when a bucket is set.
type S3Config struct {
	BucketName  string `json:"bucket_name"`
	Region      string `json:"region"` // "auto" for R2
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_key"`
	Endpoint    string `json:"endpoint"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
