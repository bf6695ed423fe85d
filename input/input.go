// Package input injects synthetic keyboard events into the active window.
//
// Every operation is a short, blocking sequence of key-down and key-up events
// with fixed delays between steps. The platform primitive is hidden behind
// Injector so that sequences can be reused against any backend.
package input

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pion/logging"
)

// Injector is the OS primitive: emit one key event, and map a character to a
// virtual key under the active layout.
type Injector interface {
	Send(vk uint16, up bool) error
	Lookup(r rune) (vk uint16, shift bool, ok bool)
}

// Delays holds the fixed pauses between injected events.
type Delays struct {
	// Char follows every typed character.
	Char time.Duration
	// Chord separates the steps of Shift+Enter.
	Chord time.Duration
	// Hold separates key down and key up in Tap.
	Hold time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Char:  10 * time.Millisecond,
		Chord: 10 * time.Millisecond,
	}
}

// Keyboard drives an Injector. It is not safe for concurrent use; callers
// that share one serialize access themselves.
type Keyboard struct {
	inj    Injector
	delays Delays
	log    logging.LeveledLogger
	sleep  func(time.Duration)
}

type Option func(*Keyboard)

func WithDelays(d Delays) Option {
	return func(k *Keyboard) { k.delays = d }
}

func WithLogger(l logging.LeveledLogger) Option {
	return func(k *Keyboard) {
		if l != nil {
			k.log = l
		}
	}
}

// New returns a Keyboard backed by inj.
func New(inj Injector, opts ...Option) *Keyboard {
	k := &Keyboard{
		inj:    inj,
		delays: DefaultDelays(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.log == nil {
		k.log = logging.NewDefaultLoggerFactory().NewLogger("input")
	}
	return k
}

// NewPlatform returns a Keyboard backed by the injector for the running OS.
func NewPlatform(opts ...Option) *Keyboard {
	return New(newPlatformInjector(), opts...)
}

func (k *Keyboard) pause(d time.Duration) {
	if d > 0 {
		k.sleep(d)
	}
}

func (k *Keyboard) down(vk uint16) error { return k.inj.Send(vk, false) }

func (k *Keyboard) up(vk uint16) error { return k.inj.Send(vk, true) }

// release lifts a key after a failure; its own error is only logged.
func (k *Keyboard) release(vk uint16) {
	if err := k.up(vk); err != nil {
		k.log.Warnf("release vk 0x%02X: %v", vk, err)
	}
}

// PressKey emits key down then key up for vk.
func (k *Keyboard) PressKey(vk uint16) error {
	if err := k.down(vk); err != nil {
		return err
	}
	return k.up(vk)
}

// TypeString types s one character at a time. Characters the layout cannot
// produce are skipped.
func (k *Keyboard) TypeString(s string) error {
	for _, r := range s {
		vk, shift, ok := k.inj.Lookup(r)
		if !ok {
			k.log.Debugf("skipping unmappable character %q", r)
			continue
		}
		if err := k.stroke(vk, shift); err != nil {
			return err
		}
		k.pause(k.delays.Char)
	}
	return nil
}

func (k *Keyboard) stroke(vk uint16, shift bool) error {
	if shift {
		if err := k.down(VK_SHIFT); err != nil {
			return err
		}
	}
	if err := k.PressKey(vk); err != nil {
		if shift {
			k.release(VK_SHIFT)
		}
		return err
	}
	if shift {
		return k.up(VK_SHIFT)
	}
	return nil
}

// SendShiftEnter emits the Shift+Enter chord, pausing between each step.
func (k *Keyboard) SendShiftEnter() error {
	if err := k.down(VK_SHIFT); err != nil {
		return err
	}
	k.pause(k.delays.Chord)
	if err := k.down(VK_RETURN); err != nil {
		k.release(VK_SHIFT)
		return err
	}
	k.pause(k.delays.Chord)
	if err := k.up(VK_RETURN); err != nil {
		k.release(VK_SHIFT)
		return err
	}
	k.pause(k.delays.Chord)
	return k.up(VK_SHIFT)
}

// Resolve maps a key name to a virtual key. Names are either an entry of the
// named key table ("enter", "f5", "pagedown", ...) or a single character.
func (k *Keyboard) Resolve(name string) (vk uint16, shift bool, err error) {
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		if vk, shift, ok := k.inj.Lookup(r); ok {
			return vk, shift, nil
		}
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	if vk, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]; ok {
		return vk, false, nil
	}
	return 0, false, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// KeyDown presses the named key and leaves it down.
func (k *Keyboard) KeyDown(name string) error {
	vk, shift, err := k.Resolve(name)
	if err != nil {
		return err
	}
	if shift {
		if err := k.down(VK_SHIFT); err != nil {
			return err
		}
	}
	if err := k.down(vk); err != nil {
		if shift {
			k.release(VK_SHIFT)
		}
		return err
	}
	return nil
}

// KeyUp releases the named key.
func (k *Keyboard) KeyUp(name string) error {
	vk, shift, err := k.Resolve(name)
	if err != nil {
		return err
	}
	if err := k.up(vk); err != nil {
		if shift {
			k.release(VK_SHIFT)
		}
		return err
	}
	if shift {
		return k.up(VK_SHIFT)
	}
	return nil
}

// Tap presses the named key while holding modifiers. Modifiers go down in
// order and come up in reverse.
func (k *Keyboard) Tap(name string, modifiers ...string) error {
	vk, shift, err := k.Resolve(name)
	if err != nil {
		return err
	}
	mods := make([]uint16, 0, len(modifiers)+1)
	for _, m := range modifiers {
		mvk, _, err := k.Resolve(m)
		if err != nil {
			return err
		}
		mods = append(mods, mvk)
	}
	if shift && !containsKey(mods, VK_SHIFT) {
		mods = append(mods, VK_SHIFT)
	}

	var held []uint16
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(held[i])
		}
	}
	for _, m := range mods {
		if err := k.down(m); err != nil {
			releaseHeld()
			return err
		}
		held = append(held, m)
	}
	if err := k.down(vk); err != nil {
		releaseHeld()
		return err
	}
	k.pause(k.delays.Hold)
	if err := k.up(vk); err != nil {
		releaseHeld()
		return err
	}
	for i := len(held) - 1; i >= 0; i-- {
		if err := k.up(held[i]); err != nil {
			held = held[:i]
			releaseHeld()
			return err
		}
	}
	return nil
}

func containsKey(keys []uint16, vk uint16) bool {
	for _, k := range keys {
		if k == vk {
			return true
		}
	}
	return false
}

var defaultKeyboard = NewPlatform()

// PressKey presses vk on the platform keyboard.
func PressKey(vk uint16) error { return defaultKeyboard.PressKey(vk) }

// TypeString types s on the platform keyboard.
func TypeString(s string) error { return defaultKeyboard.TypeString(s) }

// SendShiftEnter emits Shift+Enter on the platform keyboard.
func SendShiftEnter() error { return defaultKeyboard.SendShiftEnter() }

// KeyDown presses a key by name on the platform keyboard.
func KeyDown(name string) error { return defaultKeyboard.KeyDown(name) }

// KeyUp releases a key by name on the platform keyboard.
func KeyUp(name string) error { return defaultKeyboard.KeyUp(name) }

// Tap presses a key by name with modifiers on the platform keyboard.
func Tap(name string, modifiers ...string) error { return defaultKeyboard.Tap(name, modifiers...) }
