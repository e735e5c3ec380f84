//go:build unix

package fs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errors.Is unwraps *os.LinkError down to the errno.
func isEXDEV(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
