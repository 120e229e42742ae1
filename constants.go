package dltrouter

import "github.com/ehrlich-b/dlt-router/internal/constants"

// Re-export the wire limits and timing constants a caller wiring its own
// Daemon might need to reference without importing internal/constants.
const (
	MaxDltMessageBytes  = constants.MaxDltMessageBytes
	DefaultMulticastAddr = constants.DefaultMulticastAddr
	DefaultMulticastPort = constants.DefaultMulticastPort
	DefaultBindPort      = constants.DefaultBindPort
	NewSessionTimeout    = constants.NewSessionTimeout
	PollTimeout          = constants.PollTimeout
)
