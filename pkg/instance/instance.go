package instance

import "github.com/angelmondragon/storefront/pkg/env"

const (
	EnvInstanceID = "STOREFRONT_INSTANCE_ID"
	fallbackID    = "local"
)

// ID names the running process in logs. Platform-provided names are used
// when no explicit id is configured.
func ID() string {
	return env.First(fallbackID, EnvInstanceID, "DYNO", "HOSTNAME")
}
