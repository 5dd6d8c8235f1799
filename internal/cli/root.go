// Package cli defines the meow command tree.
package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meow",
	Short: "Peer-to-peer file sharing over WebRTC with cat-friendly share codes",
	Long: `Meow Share transfers a file or a text snippet directly between two
devices over a WebRTC data channel. The only thing the peers exchange out
of band is a short three-word code; a small relay server carries the
connection negotiation and nothing else. When a direct path cannot be
established the transfer falls back to a TURN relay if one is configured.`,
	Version: version,
}

const version = "0.1.0"

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
