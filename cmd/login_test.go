package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/wander/db"
)

func TestValidateCredentials(t *testing.T) {
	testCases := []struct {
		email    string
		password string
		want     bool
	}{
		{"ana@example.com", "secret", true},
		{"", "secret", false},
		{"ana@example.com", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		if got := validateCredentials(tc.email, tc.password); got != tc.want {
			t.Errorf("validateCredentials(%q, %q) = %v, want %v", tc.email, tc.password, got, tc.want)
		}
	}
}

func TestLogoutCmd_ClearsSession(t *testing.T) {
	cleanDBTables(t)
	svc := newTestServices("")
	seedSession(t, svc)
	require.NoError(t, svc.profiles.Upsert(context.Background(), &db.Profile{
		Email: "ana@example.com", DisplayName: "Ana",
	}))

	logoutCommand := logoutCmd(svc)
	output, err := captureCombinedOutput(logoutCommand)
	require.NoError(t, err)
	assert.Contains(t, output, "Signed out.")

	token, err := svc.tokens.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, token)

	profile, err := svc.profiles.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestLogoutCmd_PurgeClearsStayCache(t *testing.T) {
	cleanDBTables(t)
	svc := newTestServices("")
	seedSession(t, svc)
	addTestStay(t, 1, "Canal View Loft", "Amsterdam", `{"dummy": "data"}`)

	logoutCommand := logoutCmd(svc)
	output, err := captureCombinedOutput(logoutCommand, "--purge")
	require.NoError(t, err)
	assert.Contains(t, output, "Signed out.")

	stays, err := svc.stays.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stays)
}

func TestLogoutCmd_KeepsStayCacheWithoutPurge(t *testing.T) {
	cleanDBTables(t)
	svc := newTestServices("")
	seedSession(t, svc)
	addTestStay(t, 1, "Canal View Loft", "Amsterdam", `{"dummy": "data"}`)

	logoutCommand := logoutCmd(svc)
	_, err := captureCombinedOutput(logoutCommand)
	require.NoError(t, err)

	stays, err := svc.stays.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stays, 1)
}
