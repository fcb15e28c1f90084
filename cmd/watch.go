package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aniplay-cli/aniplay/api"
	"github.com/aniplay-cli/aniplay/engine"
	"github.com/aniplay-cli/aniplay/engine/mpv"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/key"
	"github.com/aniplay-cli/aniplay/log"
	"github.com/aniplay-cli/aniplay/position"
	"github.com/aniplay-cli/aniplay/resume"
	"github.com/aniplay-cli/aniplay/session"
	"github.com/aniplay-cli/aniplay/stream"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/aniplay-cli/aniplay/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Progress writes are throttled to this many seconds of playhead movement.
const savePositionEvery = 5.0

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("drm", "", "Clear-key DRM credentials in keyId:key form")
	watchCmd.Flags().Float64("start", -1, "Start playback at the given position in seconds")
	watchCmd.Flags().Bool("no-resume", false, "Never offer to resume from the saved position")
}

// watchCmd fetches an episode's stream and plays it.
var watchCmd = &cobra.Command{
	Use:     "watch [episode-id]",
	Short:   "Watch an episode",
	Args:    cobra.ExactArgs(1),
	Example: "  aniplay watch one-piece-1071",
	Run: func(cmd *cobra.Command, args []string) {
		episodeID := args[0]
		checkDependencies(viper.GetString(key.Player))

		client := api.NewClient()

		erase := util.PrintErasable(fmt.Sprintf("%s Fetching episode...", icon.Get(icon.Progress)))
		episode, err := client.Episode(episodeID)
		erase()
		handleErr(err)

		src := stream.Resolve(streamURL(client, episode))
		if rawKey := lo.Must(cmd.Flags().GetString("drm")); rawKey != "" {
			clearKey, err := stream.ParseClearKey(rawKey)
			handleErr(err)
			src = src.WithClearKey(clearKey)
		}

		var (
			store       = position.New(position.NewFileBackend())
			coordinator = resume.New(store)
			startAt     = lo.Must(cmd.Flags().GetFloat64("start"))
		)

		if startAt < 0 {
			startAt = 0
			if offer := coordinator.ShouldOfferResume(episodeID); offer.Offer && !lo.Must(cmd.Flags().GetBool("no-resume")) {
				confirm := survey.Confirm{
					Message: fmt.Sprintf("Resume from %s?", util.FormatTimestamp(offer.At)),
					Default: true,
				}
				var yes bool
				handleErr(survey.AskOne(&confirm, &yes))
				if yes {
					startAt = offer.At
				}
			}
		}

		savePositions := viper.GetBool(key.PositionsSaveOnWatch)
		if savePositions {
			store.Put(episodeID, position.MetadataPatch(episode.Name, episode.PosterURL, episode.AnimeName))
		}

		title := episode.Name
		if episode.AnimeName != "" {
			title = episode.AnimeName + " - " + episode.Name
		}

		player := mpv.New(title)
		controller := session.New(player, func() engine.Engine { return player })

		lastSaved := startAt
		fatal := make(chan *session.PlaybackError, 1)
		controller.OnChange(func(snap session.Snapshot) {
			log.Debugf("session state: %s", snap.State)
			if snap.State == session.Errored {
				select {
				case fatal <- snap.Err:
				default:
				}
			}
		})

		err = controller.Open(src, session.Options{
			Autoplay: viper.GetBool(key.PlayerAutoplay),
			StartAt:  startAt,
			Title:    title,
			Progress: func(current, duration float64) {
				if !savePositions {
					return
				}
				if current-lastSaved < savePositionEvery && current > lastSaved {
					return
				}
				lastSaved = current
				store.Put(episodeID, position.ProgressPatch(current, duration))
			},
		})
		handleErr(err)

		fmt.Printf("%s Playing %s\n", icon.Get(icon.Play), style.Bold(title))

		select {
		case perr := <-fatal:
			_ = controller.Close()
			handleErr(perr)
		case <-player.Wait():
			_ = controller.Close()
		}
	},
}

// streamURL picks the best quality source for an episode, falling back
// to the episode's own stream URL when the quality endpoint fails.
func streamURL(client *api.Client, episode *api.Episode) string {
	quality, err := client.Quality(episode.ID)
	if err == nil {
		if source, ok := quality.BestSource(); ok {
			return source.URL
		}
	}

	if episode.StreamURL == "" {
		fmt.Fprintf(os.Stderr, "%s no playable source for episode\n", icon.Get(icon.Fail))
		os.Exit(1)
	}

	return episode.StreamURL
}
