package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tributary-data/tributary/pkg/config"
)

func TestEndpointURL(t *testing.T) {
	t.Run("empty endpoint means AWS proper", func(t *testing.T) {
		assert.Equal(t, "", endpointURL(config.ObjectStoreConfig{UseSSL: true}))
	})

	t.Run("bare host gets a scheme from the ssl flag", func(t *testing.T) {
		assert.Equal(t, "http://localhost:9000",
			endpointURL(config.ObjectStoreConfig{Endpoint: "localhost:9000"}))
		assert.Equal(t, "https://minio.internal:9000",
			endpointURL(config.ObjectStoreConfig{Endpoint: "minio.internal:9000", UseSSL: true}))
	})

	t.Run("explicit scheme wins over the flag", func(t *testing.T) {
		assert.Equal(t, "http://localhost:9000",
			endpointURL(config.ObjectStoreConfig{Endpoint: "http://localhost:9000", UseSSL: true}))
		assert.Equal(t, "https://store.example.com",
			endpointURL(config.ObjectStoreConfig{Endpoint: "https://store.example.com"}))
	})
}
