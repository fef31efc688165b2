package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// keygenFunc is the global the signing script must define:
//
//	function generate_key(server, payload) return "<key>" end
const keygenFunc = "generate_key"

// KeyGenerator signs API query strings by calling generate_key in a
// sandboxed Lua script. It is safe for concurrent use; calls are serialized.
type KeyGenerator struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	logger    *zap.Logger
}

// LoadKeyGenerator executes the script at path and checks that it defines
// generate_key.
//
// Precondition: path names a readable Lua file; logger must be non-nil.
// Postcondition: Returns a ready KeyGenerator the caller must Close, or a
// non-nil error.
func LoadKeyGenerator(path string, instLimit int, logger *zap.Logger) (*KeyGenerator, error) {
	L := NewSandboxedState()
	RegisterModules(L, logger)
	if err := withBudget(L, instLimit, func() error { return L.DoFile(path) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading keygen script %q: %w", path, err)
	}
	if fn, ok := L.GetGlobal(keygenFunc).(*lua.LFunction); !ok || fn == nil {
		L.Close()
		return nil, fmt.Errorf("scripting: keygen script %q does not define %s(server, payload)", path, keygenFunc)
	}
	logger.Debug("keygen script loaded", zap.String("path", path))
	return &KeyGenerator{L: L, instLimit: instLimit, logger: logger}, nil
}

// GenerateKey returns the key for payload on the named server.
//
// Postcondition: returns a non-empty key, or a non-nil error if the script
// fails, exceeds its instruction budget, or returns a non-string.
func (k *KeyGenerator) GenerateKey(server, payload string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var ret lua.LValue
	err := withBudget(k.L, k.instLimit, func() error {
		if err := k.L.CallByParam(lua.P{
			Fn:      k.L.GetGlobal(keygenFunc),
			NRet:    1,
			Protect: true,
		}, lua.LString(server), lua.LString(payload)); err != nil {
			return err
		}
		ret = k.L.Get(-1)
		k.L.Pop(1)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scripting: %s(%q): %w", keygenFunc, server, err)
	}

	key, ok := ret.(lua.LString)
	if !ok || key == "" {
		return "", fmt.Errorf("scripting: %s(%q) returned %s, want non-empty string", keygenFunc, server, ret.Type())
	}
	return string(key), nil
}

// Close releases the Lua state.
func (k *KeyGenerator) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.L.Close()
}
