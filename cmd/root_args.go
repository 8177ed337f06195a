package cmd

import (
	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'service', 'lambda' and 'gateway'",
		Short:       helpers.Ptr("m"),
	},
	&config.Global.Diagnostics.Format: {
		Name:        "diagnostics-format",
		Description: "Format of the per-request headers and body records. Possible values are 'text' and 'json'",
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
}

var envMapInt = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
		Count:       true,
	},
}
