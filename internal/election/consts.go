package election

import "time"

// Timing constants from the bully protocol specification.
const (
	Retry               = 10
	InitConnTimeout     = 10 * time.Second
	AliveTimeout        = 1 * time.Second
	HeartbeatInterval   = 2 * time.Second
	LeaderCheckInterval = 3 * time.Second
)
