package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokfleet/pkg/engine"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the automation presets",
	Long: `List every automation preset with its base values. Applying a preset
randomizes the magnitudes per account; the values shown here are the
centers of those draws.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, preset := range engine.Presets() {
			fmt.Printf("%-12s  %s\n", preset.Name, preset.Label)
			fmt.Printf("              %s\n", preset.Description)
			fmt.Printf("              scroll=%v speed=%dms like=%v p=%.2f follow=%v limit=%d/day comment=%v p=%.2f\n\n",
				preset.AutoScroll, preset.ScrollSpeed,
				preset.AutoLike, preset.LikeProbability,
				preset.AutoFollow, preset.FollowDailyLimit,
				preset.AutoComment, preset.CommentProbability)
		}
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
