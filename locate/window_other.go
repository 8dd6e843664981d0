//go:build !linux && !windows

package locate

// NewWindowSystem is not available on this platform
func NewWindowSystem() (WindowSystem, error) {
	return nil, ErrUnsupported
}
