package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"peerdrop/internal/logger"
	"peerdrop/internal/session"
)

var sendCmd = &cobra.Command{
	Use:   "send <peer-id> <file>",
	Short: "Send a file to a peer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		peerID, path := args[0], args[1]
		log := logger.NewLogger()

		file, err := session.LoadFile(path)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		connected := make(chan struct{}, 1)
		done := make(chan error, 1)
		var bar *progressbar.ProgressBar

		obs := session.Observer{
			OnConnectionState: func(s session.ConnState) {
				if s == session.StateConnected {
					select {
					case connected <- struct{}{}:
					default:
					}
				}
			},
			OnTransferState: func(d session.Direction, s session.TransferState) {
				if d == session.DirectionSending && s == session.TransferCompleted {
					select {
					case done <- nil:
					default:
					}
				}
			},
			OnProgress: func(d session.Direction, pct int) {
				if d == session.DirectionSending && bar != nil {
					_ = bar.Set(pct)
				}
			},
			OnError: func(err error) {
				select {
				case done <- err:
				default:
				}
			},
		}

		coordinator, err := startSession(ctx, log, obs)
		if err != nil {
			return err
		}

		if err := coordinator.Initiate(ctx, peerID); err != nil {
			return err
		}

		select {
		case <-connected:
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}

		bar = progressbar.Default(100, fmt.Sprintf("sending %s", file.Name))
		if err := coordinator.Send(file); err != nil {
			return err
		}

		select {
		case err := <-done:
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Printf("sent %s (%d bytes) to %s\n", file.Name, file.Size, peerID)
		case <-ctx.Done():
			return ctx.Err()
		}

		coordinator.Disconnect()
		return nil
	},
}
