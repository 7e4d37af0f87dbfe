package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokfleet/pkg/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the device profile catalog",
	Run: func(cmd *cobra.Command, args []string) {
		for _, key := range device.AllKeys() {
			profile, _ := device.Lookup(key)
			marker := " "
			if profile.Key == device.DefaultKey {
				marker = "*"
			}
			fmt.Printf("%s %-16s %-24s %4dx%-4d @%gx  %s\n",
				marker, profile.Key, profile.Name,
				profile.Width, profile.Height, profile.PixelRatio,
				profile.Platform)
		}

		fmt.Println("\n* default profile")
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
