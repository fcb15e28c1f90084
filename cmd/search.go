package cmd

import (
	"fmt"
	"strings"

	"github.com/aniplay-cli/aniplay/api"
	"github.com/aniplay-cli/aniplay/color"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/aniplay-cli/aniplay/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum number of results to display")
}

// searchCmd queries the catalog and lists matching titles.
var searchCmd = &cobra.Command{
	Use:     "search [query]",
	Short:   "Search the catalog for a title",
	Args:    cobra.MinimumNArgs(1),
	Example: "  aniplay search attack on titan",
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		limit := lo.Must(cmd.Flags().GetInt("limit"))

		erase := util.PrintErasable(fmt.Sprintf("%s Searching for %q...", icon.Get(icon.Progress), query))
		results, err := api.NewClient().Search(query)
		erase()
		handleErr(err)

		if len(results) == 0 {
			fmt.Printf("%s Nothing found for %q\n", icon.Get(icon.Fail), query)
			return
		}

		if limit > 0 && len(results) > limit {
			results = results[:limit]
		}

		fmt.Println(style.Title(fmt.Sprintf("%s for %q", util.Quantify(len(results), "result", "results"), query)))
		fmt.Println()

		for _, anime := range results {
			name := style.Bold(anime.Name)
			if anime.Dubbed {
				name += " " + style.Tag(color.New("230"), color.Blue)("dub")
			}

			fmt.Printf("%s\n%s\n\n", name, style.Faint(anime.ID))
		}
	},
}
