package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lawmon-api/pkg/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "redis", Port: 6380, Password: "secret", DB: 2})
	assert.Equal(t, "redis:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "lawmon-api", opts.ClientName)
}
