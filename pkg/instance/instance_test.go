package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetID(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", "")
	t.Setenv("TABLESIDE_WORKER_ID", "")
	assert.Equal(t, "local", GetID())

	t.Setenv("WORKER_ID", "cron-2")
	assert.Equal(t, "cron-2", GetID())

	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "web.1", GetID())
}
