package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

var _ Sink = (*RedisSink)(nil)

// RedisSink stores each record as a JSON string under <prefix>:<id>.
type RedisSink struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSink(client rueidis.Client, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

func (s *RedisSink) Write(ctx context.Context, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	set := s.client.B().Set().Key(s.key(record.ID)).Value(string(body))

	var cmd rueidis.Completed
	if s.ttl > 0 {
		cmd = set.PxMilliseconds(max(s.ttl.Milliseconds(), 1)).Build()
	} else {
		cmd = set.Build()
	}

	err = s.client.Do(ctx, cmd).Error()
	if err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return nil
}

func (s *RedisSink) Close(context.Context) error {
	s.client.Close()
	return nil
}
