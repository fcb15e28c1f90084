package version

import (
	"fmt"

	"github.com/aniplay-cli/aniplay/color"
	"github.com/aniplay-cli/aniplay/constant"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/key"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/aniplay-cli/aniplay/util"
	"github.com/spf13/viper"
)

// Notify prints a terminal alert when a newer release is available.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Progress)))
	latest, err := Latest()
	erase()
	if err != nil {
		return
	}

	comp, err := Compare(latest, constant.Version)
	if err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)(icon.Get(icon.Update)),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/aniplay-cli/aniplay/releases/tag/v"+latest),
	)
}
