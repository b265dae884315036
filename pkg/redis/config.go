package redis

import "time"

// Config describes how to reach the Redis instance used for session storage.
type Config struct {
	ConnectionURL  string        `env:"TASKDESK_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Namespace      string        `env:"TASKDESK_REDIS_NAMESPACE" envDefault:"taskdesk"`
	RetryAttempts  int           `env:"TASKDESK_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"TASKDESK_REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"TASKDESK_REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}
