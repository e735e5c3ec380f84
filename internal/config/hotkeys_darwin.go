//go:build darwin

package config

const undoHotkey = "Cmd+Z"
