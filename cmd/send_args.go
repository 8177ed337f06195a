package cmd

import (
	"time"

	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/helpers"
)

var sendEnvMapString = map[*string]boundEnvVar[string]{
	&config.Client.URL: {
		Name:        "send-url",
		Description: "The endpoint to POST to",
		Short:       helpers.Ptr("u"),
	},
}

var sendEnvMapInt = map[*int]boundEnvVar[int]{
	&config.Client.Requests: {
		Name:        "send-requests",
		Description: "The number of requests to send",
		Short:       helpers.Ptr("n"),
	},
	&config.Client.Concurrency: {
		Name:        "send-concurrency",
		Description: "The maximum number of requests in flight (0 sends all at once)",
	},
}

var sendEnvMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Client.Timeout: {
		Name:        "send-timeout",
		Description: "The timeout for each request",
	},
}
