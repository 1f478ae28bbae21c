package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/agency/internal/auth"
	"github.com/edvin/agency/internal/vault"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CORE_DATABASE_URL", "postgres://localhost:5432/core")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestModulesCmd_Defaults(t *testing.T) {
	t.Setenv("VAULT_MODULES_FILE", "")

	out, err := runCmd(t, "modules")
	require.NoError(t, err)

	var modules []vault.ModuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &modules))
	require.Len(t, modules, 4)
	assert.Equal(t, "crm", modules[0].Key)
}

func TestModulesCmd_Cycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`modules:
  - key: a
    dependencies: [b]
    tables: [contacts]
  - key: b
    dependencies: [a]
    tables: [leads]
`), 0o600))
	t.Setenv("VAULT_MODULES_FILE", path)

	_, err := runCmd(t, "modules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic module dependency")
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ISSUER", "agency")

	out, err := runCmd(t, "token", "--user", "user-1", "--org", "org-1", "--ttl", "1h")
	require.NoError(t, err)

	tokens := auth.NewTokens("s3cret", "agency", testclock.NewClock(time.Now()))
	claims, err := tokens.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "org-1", claims.Org)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := runCmd(t, "token", "--user", "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateCmd_RequiresFlags(t *testing.T) {
	_, err := runCmd(t, "validate", "--org", "org-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot")
}

func TestRunScheduledCmd_RequiresBucket(t *testing.T) {
	t.Setenv("VAULT_BUCKET", "")

	_, err := runCmd(t, "run-scheduled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAULT_BUCKET")
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Setenv("VAULT_RETENTION", "0")

	_, err := runCmd(t, "modules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAULT_RETENTION")
}
