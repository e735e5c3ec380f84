//go:build !unix && !windows

package fs

func isEXDEV(error) bool { return false }
