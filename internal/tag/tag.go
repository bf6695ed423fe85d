// Package tag builds an XML-style element from a tag name and attributes and
// types it into the focused window as an open/close pair with the cursor left
// on the blank line between them.
package tag

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"keysynth/input"
)

var (
	ErrEmptyTag         = errors.New("tag cannot be empty")
	ErrInvalidTag       = errors.New("tag contains invalid characters")
	ErrInvalidAttribute = errors.New("attribute key contains invalid characters")
)

// DefaultDelay is the pause between the steps of TypeOut.
const DefaultDelay = 80 * time.Millisecond

type Attribute struct {
	Key   string
	Value string
}

// Element is a cleaned tag. A nil Value marks a boolean attribute.
type Element struct {
	Name  string
	Attrs []ElementAttr
}

type ElementAttr struct {
	Key   string
	Value *string
}

// CleanIdentifier collapses whitespace runs into a single underscore, then
// keeps only letters, digits, '_' and '-'.
func CleanIdentifier(s string) string {
	joined := strings.Join(strings.Fields(s), "_")
	var b strings.Builder
	for _, r := range joined {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Build validates and cleans a tag and its attributes. Attributes whose key is
// blank are dropped.
func Build(name string, attrs []Attribute) (Element, error) {
	if strings.TrimSpace(name) == "" {
		return Element{}, ErrEmptyTag
	}
	el := Element{Name: CleanIdentifier(name)}
	if el.Name == "" {
		return Element{}, fmt.Errorf("%w: %q", ErrInvalidTag, name)
	}
	for _, a := range attrs {
		key := CleanIdentifier(a.Key)
		if key == "" {
			if strings.TrimSpace(a.Key) != "" {
				return Element{}, fmt.Errorf("%w: %q", ErrInvalidAttribute, a.Key)
			}
			continue
		}
		attr := ElementAttr{Key: key}
		if v := strings.TrimSpace(a.Value); v != "" {
			attr.Value = &v
		}
		el.Attrs = append(el.Attrs, attr)
	}
	return el, nil
}

// ParseAttributes turns "key=value" arguments into attributes. An argument
// without '=' is a boolean attribute.
func ParseAttributes(args []string) []Attribute {
	attrs := make([]Attribute, 0, len(args))
	for _, arg := range args {
		k, v, _ := strings.Cut(arg, "=")
		attrs = append(attrs, Attribute{Key: k, Value: v})
	}
	return attrs
}

func (e Element) Open() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		if a.Value != nil {
			b.WriteString(`="`)
			b.WriteString(strings.ReplaceAll(*a.Value, `"`, "&quot;"))
			b.WriteString(`"`)
		}
	}
	b.WriteString(">")
	return b.String()
}

func (e Element) Close() string { return "</" + e.Name + ">" }

// XML renders the element with an empty line between open and close.
func (e Element) XML() string { return e.Open() + "\n\n" + e.Close() }

// Typist is the part of a keyboard TypeOut needs.
type Typist interface {
	TypeString(s string) error
	SendShiftEnter() error
	PressKey(vk uint16) error
}

// TypeOut types the element into the focused window. Line breaks are
// Shift+Enter; the final Up leaves the cursor on the blank line.
func TypeOut(kb Typist, el Element, delay time.Duration) error {
	return typeOut(kb, el, delay, time.Sleep)
}

func typeOut(kb Typist, el Element, delay time.Duration, sleep func(time.Duration)) error {
	if err := kb.TypeString(el.Open()); err != nil {
		return fmt.Errorf("type opening tag: %w", err)
	}
	sleep(delay)

	if err := kb.SendShiftEnter(); err != nil {
		return err
	}
	sleep(delay)

	if err := kb.SendShiftEnter(); err != nil {
		return err
	}
	if err := kb.TypeString(el.Close()); err != nil {
		return fmt.Errorf("type closing tag: %w", err)
	}
	sleep(delay)

	return kb.PressKey(input.VK_UP)
}
