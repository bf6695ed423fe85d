//go:build !windows && !cgo

package input

// Pure-Go builds outside Windows have no injection backend.

type unsupportedInjector struct{}

func newPlatformInjector() Injector { return unsupportedInjector{} }

func (unsupportedInjector) Send(uint16, bool) error { return ErrUnsupportedPlatform }

func (unsupportedInjector) Lookup(r rune) (uint16, bool, bool) { return usLookup(r) }
