package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"peerdrop/internal/broker"
	"peerdrop/internal/logger"
)

var brokerListenAddr string

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the signaling broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger()

		srv, err := broker.NewServer(broker.ServerConfig{
			Addr:   brokerListenAddr,
			Logger: log,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(ctx) }()

		select {
		case <-ctx.Done():
			return srv.Shutdown()
		case err := <-errCh:
			_ = srv.Shutdown()
			return err
		}
	},
}

func init() {
	brokerCmd.Flags().StringVar(&brokerListenAddr, "listen", ":7465", "address to listen on")
}
