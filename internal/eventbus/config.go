package eventbus

import "time"

// Config bounds one broker's replay retention, connection liveness, and
// backpressure behavior. Mirrors the like-named fields of
// pkg/config.EventBusConfig.
type Config struct {
	ReplayWindow      time.Duration
	ReplayMaxEvents   int
	HeartbeatInterval time.Duration
	MissedHeartbeats  int
	OutboundQueueSize int
	DisconnectGrace   time.Duration
}

// DefaultConfig matches spec.md §4.4's stated defaults.
func DefaultConfig() Config {
	return Config{
		ReplayWindow:      15 * time.Minute,
		ReplayMaxEvents:   1000,
		HeartbeatInterval: 20 * time.Second,
		MissedHeartbeats:  2,
		OutboundQueueSize: 256,
		DisconnectGrace:   60 * time.Second,
	}
}
