package audit

import (
	"context"
	"fmt"
	"log/slog"

	"speechrelay.dev/config"
	"speechrelay.dev/pkg/bootkit"
	"speechrelay.dev/pkg/redis"
)

type Sink interface {
	Name() string
	Write(ctx context.Context, record Record) error
	Close(ctx context.Context) error
}

var _ Sink = (*LogSink)(nil)

// LogSink writes records to the process log. It never fails.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Write(ctx context.Context, record Record) error {
	s.logger.InfoContext(ctx, "audit record",
		slog.String("id", record.ID),
		slog.Time("request_time", record.RequestTime),
		slog.Int("request_text_length", record.RequestTextLength),
		slog.Int("tts_result_code", record.TTSResultCode),
		slog.Float64("tts_duration", record.TTSDuration),
		slog.Int("tts_size", record.TTSSize),
	)

	return nil
}

func (s *LogSink) Close(context.Context) error {
	return nil
}

// NewSinkFromConfig returns nil when auditing is disabled.
func NewSinkFromConfig(cfg config.AuditConfig, lifecycle bootkit.LifeCycle) (Sink, error) {
	var (
		sink Sink
		err  error
	)

	switch cfg.Backend {
	case "", config.AuditBackendNone:
		return nil, nil
	case config.AuditBackendLog:
		sink = NewLogSink(nil)
	case config.AuditBackendCosmos:
		sink, err = NewCosmosSink(cfg.Cosmos)
	case config.AuditBackendRedis:
		client, clientErr := redis.NewRedisClient(cfg.Redis.URL)
		if clientErr != nil {
			return nil, clientErr
		}

		sink = NewRedisSink(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("audit enabled", "backend", sink.Name(), "required", cfg.IsRequired())

	lifecycle.Append(bootkit.LifeCycleHook{
		OnStop: func(ctx context.Context) error {
			slog.Info("closing audit sink", "backend", sink.Name())
			return sink.Close(ctx)
		},
	})

	return sink, nil
}
