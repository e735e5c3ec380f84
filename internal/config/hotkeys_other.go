//go:build !darwin

package config

const undoHotkey = "Ctrl+Z"
