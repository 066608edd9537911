package redis

import (
	"fmt"

	"github.com/redis/rueidis"
)

// NewRedisClient connects to the server described by a redis:// or rediss://
// URL.
func NewRedisClient(url string) (rueidis.Client, error) {
	opt, err := rueidis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
