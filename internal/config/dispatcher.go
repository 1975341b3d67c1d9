package config

import "time"

type Dispatcher struct {
	Workers   int           `env:"DISPATCHER_WORKERS" envDefault:"2"`
	QueueSize int           `env:"DISPATCHER_QUEUE_SIZE" envDefault:"256"`
	Timeout   time.Duration `env:"DISPATCHER_TASK_TIMEOUT" envDefault:"5s"`
}
