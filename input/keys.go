package input

import (
	"strconv"
	"strings"
)

// Win32 virtual-key codes. Other platforms reuse the same numbering so that
// callers can address keys the same way everywhere.
const (
	VK_BACK    = 0x08
	VK_TAB     = 0x09
	VK_RETURN  = 0x0D
	VK_SHIFT   = 0x10
	VK_CONTROL = 0x11
	VK_MENU    = 0x12 // ALT
	VK_CAPITAL = 0x14
	VK_ESCAPE  = 0x1B
	VK_SPACE   = 0x20
	VK_PRIOR   = 0x21 // page up
	VK_NEXT    = 0x22 // page down
	VK_END     = 0x23
	VK_HOME    = 0x24
	VK_LEFT    = 0x25
	VK_UP      = 0x26
	VK_RIGHT   = 0x27
	VK_DOWN    = 0x28
	VK_INSERT  = 0x2D
	VK_DELETE  = 0x2E
	VK_LWIN    = 0x5B
	VK_F1      = 0x70

	VK_OEM_1      = 0xBA // ;:
	VK_OEM_PLUS   = 0xBB // =+
	VK_OEM_COMMA  = 0xBC // ,<
	VK_OEM_MINUS  = 0xBD // -_
	VK_OEM_PERIOD = 0xBE // .>
	VK_OEM_2      = 0xBF // /?
	VK_OEM_3      = 0xC0 // `~
	VK_OEM_4      = 0xDB // [{
	VK_OEM_5      = 0xDC // \|
	VK_OEM_6      = 0xDD // ]}
	VK_OEM_7      = 0xDE // '"
)

// namedKeys maps normalized key names to virtual-key codes.
var namedKeys = map[string]uint16{
	"enter":     VK_RETURN,
	"shift":     VK_SHIFT,
	"ctrl":      VK_CONTROL,
	"alt":       VK_MENU,
	"cmd":       VK_LWIN,
	"win":       VK_LWIN,
	"meta":      VK_LWIN,
	"esc":       VK_ESCAPE,
	"space":     VK_SPACE,
	"tab":       VK_TAB,
	"backspace": VK_BACK,
	"delete":    VK_DELETE,
	"insert":    VK_INSERT,
	"home":      VK_HOME,
	"end":       VK_END,
	"pageup":    VK_PRIOR,
	"pagedown":  VK_NEXT,
	"capslock":  VK_CAPITAL,
	"up":        VK_UP,
	"down":      VK_DOWN,
	"left":      VK_LEFT,
	"right":     VK_RIGHT,
}

func init() {
	for i := 0; i < 12; i++ {
		namedKeys["f"+strconv.Itoa(i+1)] = uint16(VK_F1 + i)
	}
}

// usPunct is the US layout table for characters outside [a-zA-Z0-9].
var usPunct = map[rune]struct {
	vk    uint16
	shift bool
}{
	' ':  {VK_SPACE, false},
	'\n': {VK_RETURN, false},
	'\r': {VK_RETURN, false},
	'\t': {VK_TAB, false},
	'.':  {VK_OEM_PERIOD, false},
	'>':  {VK_OEM_PERIOD, true},
	',':  {VK_OEM_COMMA, false},
	'<':  {VK_OEM_COMMA, true},
	'-':  {VK_OEM_MINUS, false},
	'_':  {VK_OEM_MINUS, true},
	'=':  {VK_OEM_PLUS, false},
	'+':  {VK_OEM_PLUS, true},
	';':  {VK_OEM_1, false},
	':':  {VK_OEM_1, true},
	'/':  {VK_OEM_2, false},
	'?':  {VK_OEM_2, true},
	'`':  {VK_OEM_3, false},
	'~':  {VK_OEM_3, true},
	'[':  {VK_OEM_4, false},
	'{':  {VK_OEM_4, true},
	'\\': {VK_OEM_5, false},
	'|':  {VK_OEM_5, true},
	']':  {VK_OEM_6, false},
	'}':  {VK_OEM_6, true},
	'\'': {VK_OEM_7, false},
	'"':  {VK_OEM_7, true},
	'!':  {'1', true},
	'@':  {'2', true},
	'#':  {'3', true},
	'$':  {'4', true},
	'%':  {'5', true},
	'^':  {'6', true},
	'&':  {'7', true},
	'*':  {'8', true},
	'(':  {'9', true},
	')':  {'0', true},
}

// usLookup maps a rune to a virtual key under a US keyboard layout. It is the
// lookup used where the OS offers no layout-aware call.
func usLookup(r rune) (vk uint16, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return uint16('A' + (r - 'a')), false, true
	case r >= 'A' && r <= 'Z':
		return uint16(r), true, true
	case r >= '0' && r <= '9':
		return uint16(r), false, true
	}
	if p, found := usPunct[r]; found {
		return p.vk, p.shift, true
	}
	return 0, false, false
}

// keyName returns the lowercase name of vk as used by robotgo and by the
// namedKeys table. Character keys are named by their unshifted character.
func keyName(vk uint16) (string, bool) {
	switch {
	case vk >= 'A' && vk <= 'Z':
		return strings.ToLower(string(rune(vk))), true
	case vk >= '0' && vk <= '9':
		return string(rune(vk)), true
	}
	switch vk {
	case VK_LWIN:
		return "cmd", true
	}
	for name, code := range namedKeys {
		if code == vk {
			return name, true
		}
	}
	for r, p := range usPunct {
		if p.vk == vk && !p.shift && r > ' ' {
			return string(r), true
		}
	}
	return "", false
}
