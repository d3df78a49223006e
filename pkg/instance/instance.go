package instance

import "github.com/angelmondragon/tableside-backend/pkg/env"

// GetID identifies the running process in logs: the dyno name on Heroku,
// WORKER_ID elsewhere, "local" otherwise.
func GetID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("WORKER_ID", "local")
}
