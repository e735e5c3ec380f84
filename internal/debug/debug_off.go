//go:build !debug

package debug

import "io"

const Enabled = false

func Log(Category, string, ...any) {}

func EnableAll() {}

func SetOutput(io.Writer) {}
