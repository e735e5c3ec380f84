package config

import (
	"fmt"
	"strings"

	"gioui.org/io/event"
	"gioui.org/io/key"
)

// Hotkey is one parsed shortcut such as "Ctrl+Z".
type Hotkey struct {
	Key       key.Name
	Modifiers key.Modifiers
}

var modifierNames = map[string]key.Modifiers{
	"ctrl":    key.ModCtrl,
	"control": key.ModCtrl,
	"shift":   key.ModShift,
	"alt":     key.ModAlt,
	"option":  key.ModAlt,
	"cmd":     key.ModCommand,
	"command": key.ModCommand,
	"super":   key.ModSuper,
	"meta":    key.ModSuper,
	"win":     key.ModSuper,
}

// Display order for String.
var modifierOrder = []struct {
	mod  key.Modifiers
	name string
}{
	{key.ModCtrl, "Ctrl"},
	{key.ModCommand, "Cmd"},
	{key.ModShift, "Shift"},
	{key.ModAlt, "Alt"},
	{key.ModSuper, "Super"},
}

var keyNames = map[string]key.Name{
	"up": key.NameUpArrow, "uparrow": key.NameUpArrow,
	"down": key.NameDownArrow, "downarrow": key.NameDownArrow,
	"left": key.NameLeftArrow, "leftarrow": key.NameLeftArrow,
	"right": key.NameRightArrow, "rightarrow": key.NameRightArrow,
	"home": key.NameHome, "end": key.NameEnd,
	"pageup": key.NamePageUp, "pgup": key.NamePageUp,
	"pagedown": key.NamePageDown, "pgdn": key.NamePageDown,
	"enter": key.NameReturn, "return": key.NameReturn,
	"tab": key.NameTab, "space": key.NameSpace,
	"backspace": key.NameDeleteBackward, "back": key.NameDeleteBackward,
	"delete": key.NameDeleteForward, "del": key.NameDeleteForward,
	"escape": key.NameEscape, "esc": key.NameEscape,
	"f1": key.NameF1, "f2": key.NameF2, "f3": key.NameF3, "f4": key.NameF4,
	"f5": key.NameF5, "f6": key.NameF6, "f7": key.NameF7, "f8": key.NameF8,
	"f9": key.NameF9, "f10": key.NameF10, "f11": key.NameF11, "f12": key.NameF12,
}

// Gio reports the shifted character for Shift+digit on a US layout.
var shiftedDigits = map[string]string{
	"1": "!", "2": "@", "3": "#", "4": "$", "5": "%",
	"6": "^", "7": "&", "8": "*", "9": "(", "0": ")",
}

// ParseHotkey parses "Mod+Mod+Key". Modifier and named keys are matched
// case-insensitively; single characters are upper-cased. Unknown names pass
// through unchanged.
func ParseHotkey(s string) Hotkey {
	var h Hotkey
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m, ok := modifierNames[strings.ToLower(part)]; ok {
			h.Modifiers |= m
			continue
		}
		h.Key = keyName(part)
	}
	if h.Modifiers.Contain(key.ModShift) {
		if shifted, ok := shiftedDigits[string(h.Key)]; ok {
			h.Key = key.Name(shifted)
		}
	}
	return h
}

func keyName(s string) key.Name {
	if len(s) == 1 {
		return key.Name(strings.ToUpper(s))
	}
	if n, ok := keyNames[strings.ToLower(s)]; ok {
		return n
	}
	return key.Name(s)
}

// Matches requires the exact modifier set, so Ctrl+Z does not fire Z.
func (h Hotkey) Matches(k key.Event) bool {
	return h.Key != "" && k.Name == h.Key && k.Modifiers == h.Modifiers
}

func (h Hotkey) IsEmpty() bool { return h.Key == "" }

func (h Hotkey) String() string {
	if h.Key == "" {
		return ""
	}
	var parts []string
	for _, m := range modifierOrder {
		if h.Modifiers.Contain(m.mod) {
			parts = append(parts, m.name)
		}
	}
	name := string(h.Key)
	if h.Modifiers.Contain(key.ModShift) {
		for digit, shifted := range shiftedDigits {
			if shifted == name {
				name = digit
				break
			}
		}
	}
	return strings.Join(append(parts, name), "+")
}

// Filter routes the hotkey's key events to focus.
func (h Hotkey) Filter(focus event.Tag) key.Filter {
	return key.Filter{Focus: focus, Name: h.Key, Required: h.Modifiers}
}

// HotkeyMatcher holds the parsed shortcut for every window action.
type HotkeyMatcher struct {
	Keep    Hotkey
	Discard Hotkey
	Undo    Hotkey

	Next     Hotkey
	Previous Hotkey
	First    Hotkey
	Last     Hotkey

	Open       Hotkey
	OpenFolder Hotkey
}

func NewHotkeyMatcher(cfg HotkeysConfig) *HotkeyMatcher {
	return &HotkeyMatcher{
		Keep:       ParseHotkey(cfg.Keep),
		Discard:    ParseHotkey(cfg.Discard),
		Undo:       ParseHotkey(cfg.Undo),
		Next:       ParseHotkey(cfg.Next),
		Previous:   ParseHotkey(cfg.Previous),
		First:      ParseHotkey(cfg.First),
		Last:       ParseHotkey(cfg.Last),
		Open:       ParseHotkey(cfg.Open),
		OpenFolder: ParseHotkey(cfg.OpenFolder),
	}
}

type binding struct {
	action string
	hotkey Hotkey
}

func (m *HotkeyMatcher) bindings() []binding {
	return []binding{
		{"keep", m.Keep}, {"discard", m.Discard}, {"undo", m.Undo},
		{"next", m.Next}, {"previous", m.Previous},
		{"first", m.First}, {"last", m.Last}, {"open", m.Open},
		{"open folder", m.OpenFolder},
	}
}

// All returns every configured hotkey.
func (m *HotkeyMatcher) All() []Hotkey {
	var out []Hotkey
	for _, b := range m.bindings() {
		if !b.hotkey.IsEmpty() {
			out = append(out, b.hotkey)
		}
	}
	return out
}

// Filters returns one key.Filter per configured hotkey.
func (m *HotkeyMatcher) Filters(focus event.Tag) []event.Filter {
	var filters []event.Filter
	for _, h := range m.All() {
		filters = append(filters, h.Filter(focus))
	}
	return filters
}

// Conflicts describes every shortcut bound to more than one action. Only
// the first action in binding order fires for such a key.
func (m *HotkeyMatcher) Conflicts() []string {
	owner := make(map[Hotkey]string)
	var out []string
	for _, b := range m.bindings() {
		if b.hotkey.IsEmpty() {
			continue
		}
		if first, ok := owner[b.hotkey]; ok {
			out = append(out, fmt.Sprintf("%s is bound to both %s and %s", b.hotkey, first, b.action))
			continue
		}
		owner[b.hotkey] = b.action
	}
	return out
}

func (h *HotkeysConfig) fillDefaults(def HotkeysConfig) {
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&h.Keep, def.Keep)
	fill(&h.Discard, def.Discard)
	fill(&h.Undo, def.Undo)
	fill(&h.Next, def.Next)
	fill(&h.Previous, def.Previous)
	fill(&h.First, def.First)
	fill(&h.Last, def.Last)
	fill(&h.Open, def.Open)
	fill(&h.OpenFolder, def.OpenFolder)
}

// DefaultHotkeys returns the stock bindings. Undo follows the platform's
// convention.
func DefaultHotkeys() HotkeysConfig {
	return HotkeysConfig{
		Keep:       "K",
		Discard:    "D",
		Undo:       undoHotkey,
		Next:       "Right",
		Previous:   "Left",
		First:      "Home",
		Last:       "End",
		Open:       "Return",
		OpenFolder: "O",
	}
}
