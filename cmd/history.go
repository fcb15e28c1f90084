package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aniplay-cli/aniplay/color"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/position"
	"github.com/aniplay-cli/aniplay/resume"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/aniplay-cli/aniplay/util"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.SetOut(os.Stdout)

	historyCmd.Flags().IntP("limit", "n", 10, "Maximum number of entries to display")
	historyCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")
	historyCmd.Flags().Bool("schema", false, "Print the JSON schema of the output format")
	historyCmd.MarkFlagsMutuallyExclusive("json", "schema")
}

// historyCmd lists partially watched episodes, most recent first.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List episodes you can continue watching",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			reflector := new(jsonschema.Reflector)
			schema := reflector.Reflect([]resume.Entry{})
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(schema))
			return
		}

		var (
			limit       = lo.Must(cmd.Flags().GetInt("limit"))
			coordinator = resume.New(position.New(position.NewFileBackend()))
			entries     = coordinator.ContinueWatching(limit)
		)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Printf("%s Nothing to continue watching\n", icon.Get(icon.Clock))
			return
		}

		cmd.Println(style.Title("Continue watching"))
		cmd.Println()

		for _, entry := range entries {
			name := entry.Name
			if name == "" {
				name = entry.EpisodeID
			}
			if entry.SeriesName != "" {
				name = entry.SeriesName + " " + style.Faint("/") + " " + name
			}

			cmd.Printf("%s %s\n", icon.Get(icon.Play), style.Bold(name))
			cmd.Printf("  %s %s %s %s\n",
				style.Fg(color.Green)(util.FormatTimestamp(entry.Progress)),
				style.Faint("of"),
				style.Fg(color.Green)(util.FormatTimestamp(entry.TotalDuration)),
				style.Faint(fmt.Sprintf("(last watched %s)", entry.LastWatched.Format("2006-01-02 15:04"))),
			)
			cmd.Println()
		}
	},
}
