//go:build windows

package input

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestKeyboardEventMatchesINPUT(t *testing.T) {
	want := map[string]uintptr{
		"386":   28,
		"arm":   28,
		"amd64": 40,
		"arm64": 40,
	}
	size, ok := want[runtime.GOARCH]
	if !ok {
		t.Skipf("no INPUT size recorded for %s", runtime.GOARCH)
	}
	assert.Equal(t, size, unsafe.Sizeof(keyboardEvent{}))
	assert.Equal(t, unsafe.Alignof(uintptr(0)), unsafe.Offsetof(keyboardEvent{}.Ki))
}
