package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docvault/internal/flagx"
	"github.com/dmitrijs2005/docvault/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations accept both strings
// such as "15m" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`

	AccessTokenSecret       string `json:"access_token_secret"`
	RefreshTokenSecret      string `json:"refresh_token_secret"`
	VerificationTokenSecret string `json:"verification_token_secret"`
	ResetTokenSecret        string `json:"reset_token_secret"`

	AccessTokenValidityDuration            timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration           timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration      timex.Duration `json:"verification_token_validity_duration"`
	ShortVerificationTokenValidityDuration timex.Duration `json:"short_verification_token_validity_duration"`
	ResetTokenValidityDuration             timex.Duration `json:"reset_token_validity_duration"`

	LockoutThreshold               int            `json:"lockout_threshold"`
	LockoutWindow                  timex.Duration `json:"lockout_window"`
	VerificationCooldown           timex.Duration `json:"verification_cooldown"`
	ForgotPasswordMaxAttempts      int            `json:"forgot_password_max_attempts"`
	ForgotPasswordWindow           timex.Duration `json:"forgot_password_window"`
	RevokeSessionsOnPasswordChange bool           `json:"revoke_sessions_on_password_change"`

	ShareValidityDuration     timex.Duration `json:"share_validity_duration"`
	SignedURLValidityDuration timex.Duration `json:"signed_url_validity_duration"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	RedisAddr     string `json:"redis_addr"`
	RabbitMQURL   string `json:"rabbitmq_url"`
	KafkaBrokers  string `json:"kafka_brokers"`
	KafkaTopic    string `json:"kafka_topic"`
	Neo4jURI      string `json:"neo4j_uri"`
	Neo4jUser     string `json:"neo4j_user"`
	Neo4jPassword string `json:"neo4j_password"`
	Neo4jDatabase string `json:"neo4j_database"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// DOCVAULT_CONFIG) onto config. Keys missing from the file keep their
// current values. Unreadable or invalid files panic.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	fromJson(c, config)
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:                       c.EndpointAddrGRPC,
		DatabaseDSN:                            c.DatabaseDSN,
		AccessTokenSecret:                      c.AccessTokenSecret,
		RefreshTokenSecret:                     c.RefreshTokenSecret,
		VerificationTokenSecret:                c.VerificationTokenSecret,
		ResetTokenSecret:                       c.ResetTokenSecret,
		AccessTokenValidityDuration:            timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration:           timex.Duration{Duration: c.RefreshTokenValidityDuration},
		VerificationTokenValidityDuration:      timex.Duration{Duration: c.VerificationTokenValidityDuration},
		ShortVerificationTokenValidityDuration: timex.Duration{Duration: c.ShortVerificationTokenValidityDuration},
		ResetTokenValidityDuration:             timex.Duration{Duration: c.ResetTokenValidityDuration},
		LockoutThreshold:                       c.LockoutThreshold,
		LockoutWindow:                          timex.Duration{Duration: c.LockoutWindow},
		VerificationCooldown:                   timex.Duration{Duration: c.VerificationCooldown},
		ForgotPasswordMaxAttempts:              c.ForgotPasswordMaxAttempts,
		ForgotPasswordWindow:                   timex.Duration{Duration: c.ForgotPasswordWindow},
		RevokeSessionsOnPasswordChange:         c.RevokeSessionsOnPasswordChange,
		ShareValidityDuration:                  timex.Duration{Duration: c.ShareValidityDuration},
		SignedURLValidityDuration:              timex.Duration{Duration: c.SignedURLValidityDuration},
		S3RootUser:                             c.S3RootUser,
		S3RootPassword:                         c.S3RootPassword,
		S3Bucket:                               c.S3Bucket,
		S3Region:                               c.S3Region,
		S3BaseEndpoint:                         c.S3BaseEndpoint,
		RedisAddr:                              c.RedisAddr,
		RabbitMQURL:                            c.RabbitMQURL,
		KafkaBrokers:                           c.KafkaBrokers,
		KafkaTopic:                             c.KafkaTopic,
		Neo4jURI:                               c.Neo4jURI,
		Neo4jUser:                              c.Neo4jUser,
		Neo4jPassword:                          c.Neo4jPassword,
		Neo4jDatabase:                          c.Neo4jDatabase,
		LogLevel:                               c.LogLevel,
		LogFormat:                              c.LogFormat,
	}
}

func fromJson(j *JsonConfig, c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.DatabaseDSN = j.DatabaseDSN
	c.AccessTokenSecret = j.AccessTokenSecret
	c.RefreshTokenSecret = j.RefreshTokenSecret
	c.VerificationTokenSecret = j.VerificationTokenSecret
	c.ResetTokenSecret = j.ResetTokenSecret
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.VerificationTokenValidityDuration = j.VerificationTokenValidityDuration.Duration
	c.ShortVerificationTokenValidityDuration = j.ShortVerificationTokenValidityDuration.Duration
	c.ResetTokenValidityDuration = j.ResetTokenValidityDuration.Duration
	c.LockoutThreshold = j.LockoutThreshold
	c.LockoutWindow = j.LockoutWindow.Duration
	c.VerificationCooldown = j.VerificationCooldown.Duration
	c.ForgotPasswordMaxAttempts = j.ForgotPasswordMaxAttempts
	c.ForgotPasswordWindow = j.ForgotPasswordWindow.Duration
	c.RevokeSessionsOnPasswordChange = j.RevokeSessionsOnPasswordChange
	c.ShareValidityDuration = j.ShareValidityDuration.Duration
	c.SignedURLValidityDuration = j.SignedURLValidityDuration.Duration
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.RedisAddr = j.RedisAddr
	c.RabbitMQURL = j.RabbitMQURL
	c.KafkaBrokers = j.KafkaBrokers
	c.KafkaTopic = j.KafkaTopic
	c.Neo4jURI = j.Neo4jURI
	c.Neo4jUser = j.Neo4jUser
	c.Neo4jPassword = j.Neo4jPassword
	c.Neo4jDatabase = j.Neo4jDatabase
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
}
