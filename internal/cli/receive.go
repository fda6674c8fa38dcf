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

var receiveOutDir string

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Wait for a peer to send a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		artifacts := make(chan *session.Artifact, 1)
		failed := make(chan error, 1)
		var bar *progressbar.ProgressBar

		obs := session.Observer{
			OnTransferState: func(d session.Direction, s session.TransferState) {
				if d == session.DirectionReceiving && s == session.TransferActive {
					bar = progressbar.Default(100, "receiving")
				}
			},
			OnProgress: func(d session.Direction, pct int) {
				if d == session.DirectionReceiving && bar != nil {
					_ = bar.Set(pct)
				}
			},
			OnArtifact: func(a *session.Artifact) {
				select {
				case artifacts <- a:
				default:
				}
			},
			OnError: func(err error) {
				select {
				case failed <- err:
				default:
				}
			},
		}

		coordinator, err := startSession(ctx, log, obs)
		if err != nil {
			return err
		}

		fmt.Println("waiting for a file... (ctrl-c to stop)")

		select {
		case artifact := <-artifacts:
			path, err := artifact.SaveTo(receiveOutDir)
			if err != nil {
				return err
			}
			if artifact.SizeMismatch {
				log.Warnf("size mismatch: sender declared %d bytes", artifact.Size)
			}
			fmt.Printf("received %s (%d bytes) -> %s\n", artifact.Name, len(artifact.Bytes()), path)
			coordinator.DiscardArtifact()
			coordinator.Disconnect()
			return nil
		case err := <-failed:
			return err
		case <-ctx.Done():
			return nil
		}
	},
}

func init() {
	receiveCmd.Flags().StringVar(&receiveOutDir, "out", ".", "directory to save received files into")
}
