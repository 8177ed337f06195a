package cmd

import (
	"time"

	"github.com/isometry/echo-api/internal/config"
)

var gwEnvMapString = map[*string]boundEnvVar[string]{
	&config.Gateway.Addr: {
		Name:        "gateway-host-addr",
		Description: "The address to serve the gateway on (default all interfaces in dual-stack mode)",
	},
	&config.Gateway.Port: {
		Name:        "gateway-host-port",
		Description: "The port to serve the gateway on",
	},
	&config.Gateway.Upstream: {
		Name:        "gateway-upstream-url",
		Description: "The base URL requests are forwarded to",
	},
	&config.Gateway.Marker: {
		Name:        "gateway-marker",
		Description: "Field set to true on forwarded JSON objects (empty disables it)",
	},
	&config.Gateway.Guardian.URL: {
		Name:        "gateway-guardian-url",
		Description: "Base URL of the classification service screening prompts (empty disables screening)",
	},
}

var gwEnvMapInt = map[*int]boundEnvVar[int]{
	&config.Gateway.Guardian.MaxAttempts: {
		Name:        "gateway-guardian-attempts",
		Description: "Attempts made against the classification service before answering 503",
	},
	&config.Gateway.RateLimit.Requests: {
		Name:        "gateway-rate-limit",
		Description: "Screened prompts admitted per rate period (0 disables the limit)",
	},
}

var gwEnvMapInt64 = map[*int64]boundEnvVar[int64]{
	&config.Gateway.MaxBodyBytes: {
		Name:        "gateway-max-body-bytes",
		Description: "The maximum JSON body size buffered by the gateway in bytes (0 disables the limit)",
	},
}

var gwEnvMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Gateway.Timeout: {
		Name:        "gateway-io-timeout",
		Description: "The timeout for I/O operations",
	},
	&config.Gateway.Guardian.Timeout: {
		Name:        "gateway-guardian-timeout",
		Description: "The timeout of a single classification attempt",
	},
	&config.Gateway.Guardian.Backoff: {
		Name:        "gateway-guardian-backoff",
		Description: "Delay before the first classification retry, doubled on every retry",
	},
	&config.Gateway.RateLimit.Period: {
		Name:        "gateway-rate-period",
		Description: "The period the rate limit applies to",
	},
}
