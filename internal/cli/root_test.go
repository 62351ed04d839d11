package cli

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/cli/commands"
	"github.com/crypgo-dev/crypgo-web/internal/cli/userconfig"
)

func TestResolveBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BACKEND_URL", "")

	assert.Equal(t, "http://fallback:4000", resolveBackend("", "http://fallback:4000/"))

	require.NoError(t, userconfig.RememberLogin("http://saved:4000", "ops"))
	assert.Equal(t, "http://saved:4000", resolveBackend("", "http://fallback:4000"))

	t.Setenv("BACKEND_URL", "http://env:4000/")
	assert.Equal(t, "http://env:4000", resolveBackend("", "http://fallback:4000"))

	assert.Equal(t, "http://flag:4000", resolveBackend("http://flag:4000/", "http://fallback:4000"))
}

func TestRootCommandTree(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BACKEND_URL", "")

	out := &bytes.Buffer{}
	env := &commands.Env{BackendURL: "http://localhost:4000", Out: out, Logger: zerolog.Nop()}
	root := NewRootCmd(env)

	for _, name := range []string{
		"login", "logout", "whoami", "metrics", "users", "user", "user-status",
		"user-balance", "transactions", "withdrawal", "sell-order", "settings", "version",
	} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	root.SetArgs([]string{"version", "--backend", "http://other:4000/", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "crypgo-admin version dev")
	assert.Equal(t, "http://other:4000", env.BackendURL)
	assert.True(t, env.JSON)
}
