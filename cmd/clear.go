package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/position"
	"github.com/aniplay-cli/aniplay/util"
	"github.com/aniplay-cli/aniplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget defines a filesystem resource eligible for cleanup.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	clear    func() error
}

// clearTargets registry of all application artifacts that can be selectively cleared.
var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), func() error {
		return util.Delete(where.Cache())
	}},
	{"logs directory", "logs", mo.Some("l"), func() error {
		return util.Delete(where.Logs())
	}},
	{"watch positions", "positions", mo.Some("p"), func() error {
		store := position.New(position.NewFileBackend())
		store.Clear()
		return nil
	}},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}

	clearCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
}

// clearCmd manages the cleanup of cached application artifacts.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached application artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool
		force := lo.Must(cmd.Flags().GetBool("force"))

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			if !force {
				confirm := survey.Confirm{
					Message: fmt.Sprintf("Clear %s?", target.name),
					Default: false,
				}
				var yes bool
				handleErr(survey.AskOne(&confirm, &yes))
				if !yes {
					continue
				}
			}

			anyCleared = true
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), util.Capitalize(target.name)))
			handleErr(target.clear())
			e()
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
