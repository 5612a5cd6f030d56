package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAuthCode(t *testing.T) {
	code, err := extractAuthCode("https://www.wanderstay.com/auth/callback?code=abc123&state=xyz")
	require.NoError(t, err)
	assert.Equal(t, "abc123", code)
}

func TestExtractAuthCode_Missing(t *testing.T) {
	_, err := extractAuthCode("https://www.wanderstay.com/auth/callback?state=xyz")
	assert.Error(t, err)

	_, err = extractAuthCode("https://www.wanderstay.com/auth/callback")
	assert.Error(t, err)
}

func TestExtractAuthCode_BadURL(t *testing.T) {
	_, err := extractAuthCode("://not-a-url")
	assert.Error(t, err)
}
