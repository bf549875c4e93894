// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "floortrack",
	Short: "FloorTrack is a facility and network asset management service",
	Long: `FloorTrack is a facility and network asset management service
that tracks buildings, floors, access points and client devices behind a
role and group based permission model.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
