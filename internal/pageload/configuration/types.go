package configuration

import (
	"time"

	commonconfig "github.com/filmio/pageload/internal/common/config"
	"github.com/filmio/pageload/internal/common/logging"
)

type Configuration struct {
	MetricsPort uint16
	Logging     logging.Config
	// FunctionName identifies the session runner to the dispatcher: a Lambda function name, a Redis list,
	// a Pulsar topic or a NATS subject.
	FunctionName string `validate:"required"`
	Dispatch     DispatchConfiguration
	Planner      PlannerConfiguration
	Session      SessionConfiguration
	BlobStore    BlobStoreConfiguration
	Sink         SinkConfiguration
	Worker       WorkerConfiguration
}

type DispatcherType string

const (
	DispatcherLambda DispatcherType = "lambda"
	DispatcherRedis  DispatcherType = "redis"
	DispatcherPulsar DispatcherType = "pulsar"
	DispatcherNats   DispatcherType = "nats"
	DispatcherLog    DispatcherType = "log"
)

type DispatchConfiguration struct {
	Type   DispatcherType `validate:"oneof=lambda redis pulsar nats log"`
	Retry  RetryConfiguration
	Lambda LambdaConfiguration
	Redis  RedisDispatchConfiguration
	Pulsar PulsarConfiguration
	Nats   NatsConfiguration
}

// RetryConfiguration controls acknowledgement of dispatches. One attempt keeps dispatch at-most-once.
type RetryConfiguration struct {
	Attempts uint `validate:"gte=1"`
	Delay    time.Duration
}

type LambdaConfiguration struct {
	Region string
}

type RedisDispatchConfiguration struct {
	Redis     commonconfig.RedisConfig
	KeyPrefix string
}

type PulsarConfiguration struct {
	URL                   string
	OperationTimeout      time.Duration
	ConnectionTimeout     time.Duration
	SubscriptionName      string
	JwtTokenPath          string
	AuthenticationEnabled bool
}

type NatsConfiguration struct {
	Servers    []string
	QueueGroup string
}

type PlannerConfiguration struct {
	DispatchDelay time.Duration `validate:"gte=0"`
	// ProjectsFile lists projects as [{"slug": "..."}]; used when a flat run has no projectSlugs.
	ProjectsFile string
}

type SessionConfiguration struct {
	BaseURL              string `validate:"required,url"`
	CredentialsFile      string `validate:"required"`
	ReferenceImage       string
	SpinnerSelector      string `validate:"required"`
	ErrorSelector        string `validate:"required"`
	SpinnerDiffThreshold int    `validate:"gt=0"`
	PixelThreshold       float64
	SpinnerLoadTime      time.Duration
	NavigationTimeout    time.Duration
	UploadJitterMin      time.Duration
	UploadJitterMax      time.Duration `validate:"gtefield=UploadJitterMin"`
	Timezone             *time.Location
	TimestampLayout      string
	EgressIPURL          string
	EgressIPCacheTTL     time.Duration
	Browser              BrowserConfiguration
}

type BrowserConfiguration struct {
	ExecPath     string
	UserDataDir  string
	Headless     bool
	WindowWidth  int `validate:"gt=0"`
	WindowHeight int `validate:"gt=0"`
}

type BlobStoreType string

const (
	BlobStoreS3     BlobStoreType = "s3"
	BlobStoreMemory BlobStoreType = "memory"
)

type BlobStoreConfiguration struct {
	Type   BlobStoreType `validate:"oneof=s3 memory"`
	Bucket string
	Region string
}

type SinkConfiguration struct {
	URL          string `validate:"required,url"`
	MaxRedirects int
	Timeout      time.Duration
}

type WorkerConfiguration struct {
	Concurrency int `validate:"gt=0"`
}
