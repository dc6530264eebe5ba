//go:build !linux

package clipboard

import "fmt"

// Serve is only meaningful on Linux/Wayland.
func Serve(in []byte, out func(string)) error {
	return fmt.Errorf("%s is only supported on Linux", ServeCommand)
}
