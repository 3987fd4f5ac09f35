package main

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := generateAPIKey()
	require.NoError(t, err)
	b, err := generateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, apiKeyPrefix))
	assert.Len(t, a, len(apiKeyPrefix)+64)
	assert.NotEqual(t, a, b)
}

func TestCommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"migrate"}, {"user", "create"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestUserCreateRequiresEmail(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})

	root.SetArgs([]string{"user", "create"})
	assert.ErrorContains(t, root.Execute(), "email")

	root.SetArgs([]string{"user", "create", "--email", "not-an-address"})
	assert.ErrorContains(t, root.Execute(), "invalid --email")
}

func TestServeRejectsBadConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENCRYPTION_KEY", "")

	root := newRootCmd()
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	root.SetArgs([]string{"serve", "--env-file", t.TempDir() + "/missing.env"})

	assert.Error(t, root.Execute())
}
