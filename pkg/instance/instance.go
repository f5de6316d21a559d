package instance

import "github.com/angelmondragon/bazaar-backend/pkg/env"

// ID identifies the running process in log context. Platform dyno names win
// over WORKER_ID; local runs fall back to "<kind>-local".
func ID(kind string) string {
	fallback := "local"
	if kind != "" {
		fallback = kind + "-local"
	}
	return env.First(fallback, "DYNO", "WORKER_ID")
}
