package redisx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysAreNamespaced(t *testing.T) {
	assert.Equal(t, "pizzago:v1:catalog:enabled", KeyCatalog(true))
	assert.Equal(t, "pizzago:v1:catalog:all", KeyCatalog(false))
	assert.Equal(t, "pizzago:v1:rl:order:10.0.0.1", KeyRateLimit("order", "10.0.0.1"))
	assert.Equal(t, "pizzago:v1:idem:deliver:abc", KeyIdempotency("deliver", "abc"))
	assert.Equal(t, "pizzago:v1:kitchen:changed", ChannelKitchen())
}
