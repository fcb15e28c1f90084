package cmd

import (
	"os"

	"github.com/aniplay-cli/aniplay/color"
	"github.com/aniplay-cli/aniplay/stream"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.SetOut(os.Stdout)

	resolveCmd.Flags().String("drm", "", "Clear-key DRM credentials in keyId:key form")
}

// resolveCmd classifies a media URL the way the watch command would.
var resolveCmd = &cobra.Command{
	Use:     "resolve [url]",
	Short:   "Classify a media URL and show how it would be played",
	Args:    cobra.ExactArgs(1),
	Example: "  aniplay resolve https://cdn.example.com/master.m3u8",
	Run: func(cmd *cobra.Command, args []string) {
		src := stream.Resolve(args[0])

		if rawKey := lo.Must(cmd.Flags().GetString("drm")); rawKey != "" {
			key, err := stream.ParseClearKey(rawKey)
			handleErr(err)
			src = src.WithClearKey(key)
		}

		label := style.Fg(color.Blue)

		cmd.Printf("%s %s\n", label("URL: "), src.URL)
		cmd.Printf("%s %s\n", label("Kind:"), style.Bold(src.Kind.String()))

		if key, ok := src.DRM.Get(); ok {
			cmd.Printf("%s %s\n", label("DRM: "), style.Faint("clear-key "+key.ID))
		}

		if src.Kind == stream.Unknown {
			cmd.Println(style.ErrorTitle("unsupported source"))
			os.Exit(1)
		}
	},
}
