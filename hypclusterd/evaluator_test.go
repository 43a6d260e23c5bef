package hypclusterd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigSetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()
	assert.NotEmpty(t, cfg.InstanceID)

	cfg = Config{InstanceID: "fixed"}
	cfg.setDefaults()
	assert.Equal(t, "fixed", cfg.InstanceID)
}
