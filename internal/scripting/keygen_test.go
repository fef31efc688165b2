package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/padetl/internal/scripting"
)

const echoKeygen = `
function generate_key(server, payload)
  return string.upper(server) .. ":" .. string.len(payload)
end
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keygen.lua")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func loadKeygen(t *testing.T, body string) *scripting.KeyGenerator {
	t.Helper()
	kg, err := scripting.LoadKeyGenerator(writeScript(t, body), 0, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(kg.Close)
	return kg
}

func TestGenerateKey(t *testing.T) {
	kg := loadKeygen(t, echoKeygen)
	key, err := kg.GenerateKey("na", "action=login&t=1")
	require.NoError(t, err)
	assert.Equal(t, "NA:16", key)
}

func TestLoadKeyGenerator_MissingFunction(t *testing.T) {
	_, err := scripting.LoadKeyGenerator(writeScript(t, `x = 1`), 0, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate_key")
}

func TestLoadKeyGenerator_SyntaxError(t *testing.T) {
	_, err := scripting.LoadKeyGenerator(writeScript(t, `function (`), 0, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadKeyGenerator_MissingFile(t *testing.T) {
	_, err := scripting.LoadKeyGenerator(filepath.Join(t.TempDir(), "none.lua"), 0, zap.NewNop())
	assert.Error(t, err)
}

func TestGenerateKey_NonStringResult(t *testing.T) {
	kg := loadKeygen(t, `function generate_key(s, p) return 42 end`)
	_, err := kg.GenerateKey("na", "x")
	assert.Error(t, err)
}

func TestGenerateKey_EmptyResult(t *testing.T) {
	kg := loadKeygen(t, `function generate_key(s, p) return "" end`)
	_, err := kg.GenerateKey("na", "x")
	assert.Error(t, err)
}

func TestGenerateKey_RuntimeError(t *testing.T) {
	kg := loadKeygen(t, `function generate_key(s, p) error("no key for " .. s) end`)
	_, err := kg.GenerateKey("jp", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key for jp")
}

func TestGenerateKey_InstructionLimit(t *testing.T) {
	path := writeScript(t, `function generate_key(s, p) while true do end end`)
	kg, err := scripting.LoadKeyGenerator(path, 100, zap.NewNop())
	require.NoError(t, err)
	defer kg.Close()
	_, err = kg.GenerateKey("na", "x")
	assert.Error(t, err)
}

func TestGenerateKey_Concurrent(t *testing.T) {
	kg := loadKeygen(t, echoKeygen)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := kg.GenerateKey("na", "abc")
			assert.NoError(t, err)
			assert.Equal(t, "NA:3", key)
		}()
	}
	wg.Wait()
}

// Property: the budget resets between calls, so repeated calls never run dry.
func TestGenerateKey_RepeatedCallsSucceed(t *testing.T) {
	kg := loadKeygen(t, echoKeygen)
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.StringMatching(`[a-z=&0-9]{0,40}`).Draw(t, "payload")
		key, err := kg.GenerateKey("na", payload)
		if err != nil {
			t.Fatalf("GenerateKey(%q): %v", payload, err)
		}
		if key == "" {
			t.Fatalf("empty key for %q", payload)
		}
	})
}

func TestGenerateKey_UsesHostModules(t *testing.T) {
	kg := loadKeygen(t, `
function generate_key(server, payload)
  local h = 0
  for i = 1, string.len(payload) do
    h = bit.bxor(bit.lshift(h, 5), string.byte(payload, i))
  end
  log.debug("signed " .. server)
  return bit.tohex(h)
end
`)
	key, err := kg.GenerateKey("na", "a")
	require.NoError(t, err)
	assert.Equal(t, "00000061", key)
}
