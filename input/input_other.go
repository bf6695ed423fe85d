//go:build !windows && cgo

package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// robotgoInjector drives robotgo by key name. Lookup uses the US table since
// robotgo has no layout query.
type robotgoInjector struct{}

func newPlatformInjector() Injector { return robotgoInjector{} }

func (robotgoInjector) Send(vk uint16, up bool) error {
	name, ok := keyName(vk)
	if !ok {
		return fmt.Errorf("%w: vk 0x%02X", ErrUnknownKey, vk)
	}
	state := "down"
	if up {
		state = "up"
	}
	if err := robotgo.KeyToggle(name, state); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInjectFailed, name, state, err)
	}
	return nil
}

func (robotgoInjector) Lookup(r rune) (uint16, bool, bool) { return usLookup(r) }
