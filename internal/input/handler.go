package input

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/logging"

	kb "keysynth/input"
	"keysynth/internal/tag"
	t "keysynth/internal/types"
)

// ErrUnknownEvent is returned for an Event whose Type is not recognised.
var ErrUnknownEvent = errors.New("unknown event type")

// Keyboard is the injection surface the dispatcher drives.
type Keyboard interface {
	PressKey(vk uint16) error
	TypeString(s string) error
	SendShiftEnter() error
	KeyDown(name string) error
	KeyUp(name string) error
	Tap(name string, modifiers ...string) error
}

// Dispatcher executes control Events against a Keyboard, one at a time across
// every transport.
type Dispatcher struct {
	mu       sync.Mutex
	kb       Keyboard
	tagDelay time.Duration
	log      logging.LeveledLogger
}

func NewDispatcher(k Keyboard, tagDelay time.Duration, log logging.LeveledLogger) *Dispatcher {
	if log == nil {
		log = logging.NewDefaultLoggerFactory().NewLogger("dispatch")
	}
	return &Dispatcher{kb: k, tagDelay: tagDelay, log: log}
}

// HandleEvent executes the side-effect for a control Event
func (d *Dispatcher) HandleEvent(event t.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Debugf("event %s key=%q keyCode=%d", event.Type, event.Key, event.KeyCode)

	switch strings.ToLower(event.Type) {
	case t.EventPress:
		if event.KeyCode != 0 {
			if event.KeyCode < 0 || event.KeyCode > 0xFF {
				return fmt.Errorf("%w: keyCode %d", kb.ErrUnknownKey, event.KeyCode)
			}
			return d.kb.PressKey(uint16(event.KeyCode))
		}
		key, err := requireKey(event.Key)
		if err != nil {
			return err
		}
		return d.kb.Tap(key)
	case t.EventKeyDown:
		key, err := requireKey(event.Key)
		if err != nil {
			return err
		}
		return d.kb.KeyDown(key)
	case t.EventKeyUp:
		key, err := requireKey(event.Key)
		if err != nil {
			return err
		}
		return d.kb.KeyUp(key)
	case t.EventTap:
		key, err := requireKey(event.Key)
		if err != nil {
			return err
		}
		mods := make([]string, 0, len(event.Modifiers))
		for _, m := range event.Modifiers {
			nm, err := requireKey(m)
			if err != nil {
				return err
			}
			mods = append(mods, nm)
		}
		return d.kb.Tap(key, mods...)
	case t.EventType, t.EventPaste:
		text := event.Text
		if text == "" {
			text = event.ClipboardText
		}
		if text == "" {
			return nil
		}
		return d.kb.TypeString(text)
	case t.EventShiftEnter:
		return d.kb.SendShiftEnter()
	case t.EventTag:
		attrs := make([]tag.Attribute, 0, len(event.Attributes))
		for _, a := range event.Attributes {
			attrs = append(attrs, tag.Attribute{Key: a.Key, Value: a.Value})
		}
		el, err := tag.Build(event.Tag, attrs)
		if err != nil {
			return err
		}
		return tag.TypeOut(d.kb, el, d.tagDelay)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
}

// IsInvalid reports whether err came from a malformed Event rather than from
// the OS injection call.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, kb.ErrUnknownKey) ||
		errors.Is(err, tag.ErrEmptyTag) ||
		errors.Is(err, tag.ErrInvalidTag) ||
		errors.Is(err, tag.ErrInvalidAttribute)
}

func requireKey(k string) (string, error) {
	key := NormalizeKey(k)
	if key == "" {
		return "", fmt.Errorf("%w: %q", kb.ErrUnknownKey, k)
	}
	return key, nil
}

// NormalizeKey maps browser KeyboardEvent.key names onto the keyboard's key
// names. Single characters pass through unchanged.
func NormalizeKey(k string) string {
	if len([]rune(k)) == 1 {
		if k == " " {
			return "space"
		}
		return k
	}
	k = strings.ToLower(strings.TrimSpace(k))
	switch k {
	case "control", "ctrl":
		return "ctrl"
	case "alt", "option":
		return "alt"
	case "meta", "command", "cmd", "os", "super", "win":
		return "cmd"
	case "escape", "esc":
		return "esc"
	case "space", "spacebar":
		return "space"
	case "return":
		return "enter"
	case "del":
		return "delete"
	case "arrowup":
		return "up"
	case "arrowdown":
		return "down"
	case "arrowleft":
		return "left"
	case "arrowright":
		return "right"
	case "enter", "shift", "tab", "backspace", "delete", "insert", "home", "end",
		"pageup", "pagedown", "capslock", "up", "down", "left", "right":
		return k
	}
	if len(k) >= 2 && len(k) <= 3 && k[0] == 'f' {
		return k
	}
	return ""
}
