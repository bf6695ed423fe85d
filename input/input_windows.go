//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procSendInput  = user32.NewProc("SendInput")
	procVkKeyScanW = user32.NewProc("VkKeyScanW")
)

const (
	INPUT_KEYBOARD  = 1
	KEYEVENTF_KEYUP = 0x0002
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// keyboardEvent mirrors INPUT with the keyboard arm of the union. The trailing
// pad covers the larger MOUSEINPUT arm so the size matches sizeof(INPUT).
type keyboardEvent struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte
}

type sendInputInjector struct{}

func newPlatformInjector() Injector { return sendInputInjector{} }

func (sendInputInjector) Send(vk uint16, up bool) error {
	ev := keyboardEvent{Type: INPUT_KEYBOARD, Ki: keybdInput{Vk: vk}}
	if up {
		ev.Ki.Flags = KEYEVENTF_KEYUP
	}
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	if n == 0 {
		return fmt.Errorf("%w: vk 0x%02X: %v", ErrInjectFailed, vk, err)
	}
	return nil
}

// Lookup asks VkKeyScanW for the active layout. The low byte of the result is
// the virtual key, bit 0 of the high byte is the shift state, -1 means the
// layout cannot produce r.
func (sendInputInjector) Lookup(r rune) (uint16, bool, bool) {
	if r < 0 || r > 0xFFFF {
		return 0, false, false
	}
	ret, _, _ := procVkKeyScanW.Call(uintptr(r))
	res := int16(ret)
	if res == -1 {
		return 0, false, false
	}
	return uint16(res) & 0xFF, (uint16(res)>>8)&1 != 0, true
}
