package statefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetRemove(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Get("aegis-storage")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("aegis-storage", `{"theme":"dark"}`))

	value, ok, err := s.Get("aegis-storage")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"theme":"dark"}`, value)

	_, err = os.Stat(filepath.Join(s.Dir(), "aegis-storage.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Dir(), "aegis-storage.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	require.NoError(t, s.Remove("aegis-storage"))
	_, ok, err = s.Get("aegis-storage")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Remove("aegis-storage"), "removing a missing key is fine")
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("wallet", "0x1"))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	value, ok, err := reopened.Get("wallet")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0x1", value)
}

func TestStore_InvalidKey(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Set("  ", "x"))
	_, _, err = s.Get("///")
	assert.Error(t, err)

	var nilStore *Store
	assert.Error(t, nilStore.Set("k", "v"))
}

func TestSanitizeKey(t *testing.T) {
	tests := map[string]string{
		"aegis-storage":  "aegis-storage",
		"Aegis Storage":  "aegis_storage",
		"../etc/passwd":  "etc_passwd",
		"  wallet::v2  ": "wallet_v2",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, sanitizeKey(input), input)
	}
}
