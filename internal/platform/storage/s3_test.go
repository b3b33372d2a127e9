package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.EqualError(t, Config{}.validate(), "storage: bucket is required")
	require.EqualError(t, Config{Bucket: "img"}.validate(), "storage: access key is required")
	require.EqualError(t, Config{Bucket: "img", AccessKey: "a"}.validate(), "storage: secret key is required")
	require.NoError(t, Config{Bucket: "img", AccessKey: "a", SecretKey: "b"}.validate())
}

func TestEndpointURLAddsScheme(t *testing.T) {
	endpoint, err := Config{Endpoint: "minio:9000"}.endpointURL()
	require.NoError(t, err)
	require.Equal(t, "http://minio:9000", endpoint)

	endpoint, err = Config{Endpoint: "s3.example.com", UseSSL: true}.endpointURL()
	require.NoError(t, err)
	require.Equal(t, "https://s3.example.com", endpoint)
}

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := ObjectKey("/products/", 7, "Foto.PNG")
	require.True(t, strings.HasPrefix(key, "products/7/"))
	require.True(t, strings.HasSuffix(key, ".png"))
}

func TestNewS3StoreRejectsMissingBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), Config{AccessKey: "a", SecretKey: "b"}, nil)
	require.Error(t, err)
}
