package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/docvault/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-l",
	"-access-secret", "-refresh-secret", "-verification-secret", "-reset-secret",
	"-revoke-sessions-on-password-change",
	"-redis", "-amqp", "-kafka", "-kafka-topic",
	"-neo4j", "-neo4j-user", "-neo4j-password",
	"-log-format",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string    gRPC bind address (e.g., ":50051")
//	-d string    PostgreSQL DSN
//	-t duration  access token validity (e.g., "15m")
//	-r duration  refresh token validity (e.g., "168h")
//	-u/-p string S3 root user / password
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint
//	-l string    log level
//	-access-secret, -refresh-secret, -verification-secret, -reset-secret
//	-revoke-sessions-on-password-change
//	-redis, -amqp, -kafka, -kafka-topic, -neo4j, -neo4j-user, -neo4j-password
//	-log-format  "json" or "text"
//
// os.Args is first filtered with flagx.FilterArgs so that flags owned by
// other components (-c/-config) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	fs.StringVar(&config.AccessTokenSecret, "access-secret", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "refresh-secret", config.RefreshTokenSecret, "refresh token secret")
	fs.StringVar(&config.VerificationTokenSecret, "verification-secret", config.VerificationTokenSecret, "verification token secret")
	fs.StringVar(&config.ResetTokenSecret, "reset-secret", config.ResetTokenSecret, "password reset token secret")
	fs.BoolVar(&config.RevokeSessionsOnPasswordChange, "revoke-sessions-on-password-change",
		config.RevokeSessionsOnPasswordChange, "delete all refresh tokens when a password changes")

	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.RabbitMQURL, "amqp", config.RabbitMQURL, "RabbitMQ URL")
	fs.StringVar(&config.KafkaBrokers, "kafka", config.KafkaBrokers, "comma-separated Kafka brokers")
	fs.StringVar(&config.KafkaTopic, "kafka-topic", config.KafkaTopic, "Kafka topic for domain events")
	fs.StringVar(&config.Neo4jURI, "neo4j", config.Neo4jURI, "Neo4j bolt URI")
	fs.StringVar(&config.Neo4jUser, "neo4j-user", config.Neo4jUser, "Neo4j user")
	fs.StringVar(&config.Neo4jPassword, "neo4j-password", config.Neo4jPassword, "Neo4j password")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json, text)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
