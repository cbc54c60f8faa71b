package keyring_test

import (
	"testing"

	"github.com/alkime/practice/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

// The keychain mock is process-wide, so these tests do not run in parallel.

func TestSetGet(t *testing.T) {
	gokeyring.MockInit()

	assert.False(t, keyring.IsSet(keyring.OpenAI))

	_, err := keyring.Get(keyring.OpenAI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")

	require.NoError(t, keyring.Set(keyring.OpenAI, "sk-test"))
	assert.True(t, keyring.IsSet(keyring.OpenAI))

	value, err := keyring.Get(keyring.OpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)
}

func TestAPIKeyFromServiceName(t *testing.T) {
	key, err := keyring.APIKeyFromServiceName("openai")
	require.NoError(t, err)
	assert.Equal(t, keyring.OpenAI, key)

	_, err = keyring.APIKeyFromServiceName("anthropic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service")
}
