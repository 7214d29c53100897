package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	GrpcPort             int           `env:"GRPC_PORT,default=9090"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	MediaDir             string        `env:"MEDIA_DIR,required=true"`
	MediaBaseURL         string        `env:"MEDIA_BASE_URL,default=/media"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	JwtSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	IdentityTimeout      time.Duration `env:"IDENTITY_TIMEOUT,default=2s"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=128"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	HealthInterval       time.Duration `env:"HEALTH_INTERVAL,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4000"`
	MaxUploadBytes       int64         `env:"MAX_UPLOAD_BYTES,default=20971520"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func (c Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
