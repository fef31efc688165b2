package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the host tables signing scripts may use:
//
//	bit.band/bor/bxor(a, b, ...)  bit.bnot(a)  bit.lshift/rshift(a, n)  bit.tohex(a)
//	log.debug(msg)  log.info(msg)
//
// Lua 5.1 has no integer bit operators, so bit works on unsigned 32-bit
// values; results are always in [0, 2^32).
//
// Precondition: L must be from NewSandboxedState; logger must be non-nil.
// Postcondition: bit and log globals are defined in L.
func RegisterModules(L *lua.LState, logger *zap.Logger) {
	bit := L.NewTable()
	L.SetFuncs(bit, map[string]lua.LGFunction{
		"band":   foldBits(func(a, b uint32) uint32 { return a & b }),
		"bor":    foldBits(func(a, b uint32) uint32 { return a | b }),
		"bxor":   foldBits(func(a, b uint32) uint32 { return a ^ b }),
		"bnot":   bitNot,
		"lshift": bitShift(func(a uint32, n uint) uint32 { return a << n }),
		"rshift": bitShift(func(a uint32, n uint) uint32 { return a >> n }),
		"tohex":  bitToHex,
	})
	L.SetGlobal("bit", bit)

	log := L.NewTable()
	L.SetFuncs(log, map[string]lua.LGFunction{
		"debug": logFunc(logger.Debug),
		"info":  logFunc(logger.Info),
	})
	L.SetGlobal("log", log)
}

func toUint32(L *lua.LState, n int) uint32 {
	return uint32(int64(L.CheckNumber(n)))
}

func pushUint32(L *lua.LState, v uint32) int {
	L.Push(lua.LNumber(v))
	return 1
}

func foldBits(op func(a, b uint32) uint32) lua.LGFunction {
	return func(L *lua.LState) int {
		acc := toUint32(L, 1)
		for i := 2; i <= L.GetTop(); i++ {
			acc = op(acc, toUint32(L, i))
		}
		return pushUint32(L, acc)
	}
}

func bitNot(L *lua.LState) int {
	return pushUint32(L, ^toUint32(L, 1))
}

func bitShift(op func(a uint32, n uint) uint32) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.CheckInt(2)
		if n < 0 || n > 31 {
			L.ArgError(2, "shift must be in [0, 31]")
			return 0
		}
		return pushUint32(L, op(toUint32(L, 1), uint(n)))
	}
}

func bitToHex(L *lua.LState) int {
	L.Push(lua.LString(fmt.Sprintf("%08x", toUint32(L, 1))))
	return 1
}

func logFunc(emit func(string, ...zap.Field)) lua.LGFunction {
	return func(L *lua.LState) int {
		emit("keygen script", zap.String("msg", L.CheckString(1)))
		return 0
	}
}
