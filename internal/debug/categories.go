// Package debug is category-filtered trace logging. Builds without the
// debug tag compile every call down to nothing.
package debug

import "strings"

// Category tags a trace line with the subsystem that wrote it.
type Category string

const (
	APP    Category = "APP"    // session, inbox dispatch
	FS     Category = "FS"     // scans, renames, watcher
	DECODE Category = "DECODE" // strategy stages, pool workers
	CACHE  Category = "CACHE"  // prefetch window
	THUMB  Category = "THUMB"  // thumbnail admission
	MOVE   Category = "MOVE"   // move queue worker
	UNDO   Category = "UNDO"
	STORE  Category = "STORE" // move journal
	UI     Category = "UI"
	HOTKEY Category = "HOTKEY"

	// FS_ENTRY traces every scanned file and is off unless asked for.
	FS_ENTRY Category = "FS_ENTRY"
)

// Categories lists every category. The ones enabled by default come first.
var Categories = []Category{APP, FS, DECODE, CACHE, THUMB, MOVE, UNDO, STORE, UI, HOTKEY, FS_ENTRY}

func defaultOn(c Category) bool { return c != FS_ENTRY }

// ParseCategories turns a TRIAGE_DEBUG value into the enabled set. ""
// yields the defaults, "all" and "none" do what they say, anything else
// is a comma separated list of category names.
func ParseCategories(value string) map[Category]bool {
	on := make(map[Category]bool, len(Categories))
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "":
		for _, c := range Categories {
			on[c] = defaultOn(c)
		}
	case "ALL":
		for _, c := range Categories {
			on[c] = true
		}
	case "NONE":
	default:
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				on[Category(name)] = true
			}
		}
	}
	return on
}
