// Package icon renders UI symbols in the variant the user configured.
//
// Icons can display as emoji, nerd-font glyphs or plain ASCII.
package icon

import (
	"github.com/aniplay-cli/aniplay/key"
	"github.com/spf13/viper"
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants returns all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

// iconDef holds the representations of one symbol across all variants.
type iconDef struct {
	emoji string
	nerd  string
	plain string
}

// Get retrieves the representation matching the configured variant.
func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	default:
		return ""
	}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota + 1
	Fail
	Play
	Clock
	Trash
	Update
	Progress
)

var icons = map[Icon]*iconDef{
	Success:  {emoji: "✅", nerd: "", plain: "[ok]"},
	Progress: {emoji: "⏳", nerd: "", plain: "..."},
	Fail:     {emoji: "❌", nerd: "", plain: "[x]"},
	Play:     {emoji: "▶️", nerd: "", plain: ">"},
	Clock:    {emoji: "🕒", nerd: "", plain: "@"},
	Trash:    {emoji: "🗑️", nerd: "", plain: "[del]"},
	Update:   {emoji: "🔖", nerd: "", plain: "[new]"},
}

// Get returns the rendered string for the given Icon.
func Get(i Icon) string {
	return icons[i].Get()
}
