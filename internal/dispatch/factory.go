package dispatch

import (
	"context"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/filmio/pageload/internal/common/loaderrors"
	"github.com/filmio/pageload/internal/pageload/configuration"
)

// New builds the configured dispatcher, wrapped with metrics and the retry policy. The returned
// cleanup function releases any connections and must be called once planning is over.
func New(ctx context.Context, config configuration.DispatchConfiguration) (Dispatcher, func(), error) {
	var (
		dispatcher Dispatcher
		cleanup    = func() {}
	)
	switch config.Type {
	case configuration.DispatcherLambda:
		d, err := NewLambdaDispatcherFromRegion(ctx, config.Lambda.Region)
		if err != nil {
			return nil, nil, err
		}
		dispatcher = d
	case configuration.DispatcherRedis:
		db := redis.NewUniversalClient(config.Redis.Redis.AsUniversalOptions())
		dispatcher = NewRedisDispatcher(db, config.Redis.KeyPrefix)
		cleanup = func() { _ = db.Close() }
	case configuration.DispatcherPulsar:
		client, err := NewPulsarClient(config.Pulsar)
		if err != nil {
			return nil, nil, err
		}
		d := NewPulsarDispatcher(client)
		dispatcher = d
		cleanup = func() {
			d.Close()
			client.Close()
		}
	case configuration.DispatcherNats:
		conn, err := nats.Connect(NatsURL(config.Nats))
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		dispatcher = NewNatsDispatcher(conn)
		cleanup = conn.Close
	case configuration.DispatcherLog, "":
		dispatcher = LogDispatcher{}
	default:
		return nil, nil, errors.WithStack(&loaderrors.ErrInvalidArgument{
			Name:    "dispatch.type",
			Value:   config.Type,
			Message: "expected one of lambda, redis, pulsar, nats or log",
		})
	}
	name := string(config.Type)
	if name == "" {
		name = string(configuration.DispatcherLog)
	}
	return WithRetry(Instrument(name, dispatcher), config.Retry.Attempts, config.Retry.Delay), cleanup, nil
}

func NewPulsarClient(config configuration.PulsarConfiguration) (pulsar.Client, error) {
	var authentication pulsar.Authentication
	if config.AuthenticationEnabled {
		if config.JwtTokenPath == "" {
			return nil, errors.WithStack(&loaderrors.ErrInvalidArgument{
				Name:    "dispatch.pulsar.jwtTokenPath",
				Value:   config.JwtTokenPath,
				Message: "JWT authentication was configured for Pulsar but no JwtTokenPath was supplied",
			})
		}
		authentication = pulsar.NewAuthenticationTokenFromFile(config.JwtTokenPath)
	}
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL:               config.URL,
		OperationTimeout:  config.OperationTimeout,
		ConnectionTimeout: config.ConnectionTimeout,
		Authentication:    authentication,
	})
	return client, errors.WithStack(err)
}

// NatsURL joins the configured servers into the comma separated list nats.Connect accepts.
func NatsURL(config configuration.NatsConfiguration) string {
	if len(config.Servers) == 0 {
		return nats.DefaultURL
	}
	url := config.Servers[0]
	for _, server := range config.Servers[1:] {
		url += "," + server
	}
	return url
}
