package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Replaced in tests to simulate EXDEV and other rename failures.
var renameFunc = os.Rename

// CrossDeviceError marks a rename that failed because source and
// destination are on different file systems. Moves never fall back to
// copy+delete.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device move %q -> %q: keep and discard folders must be on the same file system: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is or wraps a *CrossDeviceError.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename wraps os.Rename and reports EXDEV as *CrossDeviceError.
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// PathExists checks if a path exists on the filesystem.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// UniqueDestination returns dir/name, or dir/stem_N.ext for the smallest
// N >= 1 that is free. reserved, when set, marks paths already promised to
// a pending move. The check is not atomic with the eventual rename.
func UniqueDestination(dir, name string, reserved func(string) bool) string {
	taken := func(p string) bool {
		return PathExists(p) || (reserved != nil && reserved(p))
	}
	candidate := filepath.Join(dir, name)
	if !taken(candidate) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, stem+"_"+strconv.Itoa(i)+ext)
		if !taken(candidate) {
			return candidate
		}
	}
}
