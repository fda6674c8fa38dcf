// Package cli wires the peerdrop commands: the signaling broker, the
// send and receive sessions, and the transfer history.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	brokerAddr  string
	stunServers []string
	historyPath string
)

var rootCmd = &cobra.Command{
	Use:  "peerdrop",
	Long: "peerdrop transfers single files directly between two peers over WebRTC data channels",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&brokerAddr, "broker", "localhost:7465", "signaling broker address")
	rootCmd.PersistentFlags().StringSliceVar(&stunServers, "stun", nil, "STUN servers for NAT traversal")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", defaultHistoryPath(), "transfer history database path")

	rootCmd.AddCommand(brokerCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(receiveCmd)
	rootCmd.AddCommand(historyCmd)
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "peerdrop-history.db"
	}
	return filepath.Join(home, ".peerdrop", "history.db")
}
