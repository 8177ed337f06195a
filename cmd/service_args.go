package cmd

import (
	"time"

	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/helpers"
)

var svcEnvMapString = map[*string]boundEnvVar[string]{
	&config.Service.Addr: {
		Name:        "service-host-addr",
		Description: "The address to serve the service on (default all interfaces in dual-stack serviceMode)",
		Short:       helpers.Ptr("H"),
	},
	&config.Service.Port: {
		Name:        "service-host-port",
		Description: "The port to serve the service on",
		Short:       helpers.Ptr("p"),
	},
}

var svcEnvMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Service.Timeout: {
		Name:        "service-io-timeout",
		Description: "The timeout for I/O operations",
		Short:       helpers.Ptr("t"),
	},
}

var svcEnvMapInt64 = map[*int64]boundEnvVar[int64]{
	&config.Service.MaxBodyBytes: {
		Name:        "service-max-body-bytes",
		Description: "The maximum accepted request body size in bytes (0 disables the limit)",
	},
}
