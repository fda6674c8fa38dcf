package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"peerdrop/internal/broker"
	"peerdrop/internal/session"
	"peerdrop/internal/store"
	"peerdrop/internal/transport"
	"peerdrop/internal/transport/webrtc"
)

// startSession brings up the full peer stack: broker client, WebRTC
// transport fed by broker signals, and the session coordinator. It
// prints the assigned peer identity so the user can share it.
func startSession(ctx context.Context, log *logrus.Logger, obs session.Observer) (*session.Coordinator, error) {
	client := broker.NewClient(broker.ClientConfig{
		BrokerAddr: brokerAddr,
		Logger:     log,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	tr := webrtc.New(client, stunServers, log)
	handler := tr.(transport.SignalHandler)
	go func() {
		for sig := range client.Signals() {
			if err := handler.HandleSignal(sig); err != nil {
				log.Warnf("failed to handle signal from %s: %v", sig.PeerID, err)
			}
		}
	}()

	coordinator := session.New(session.Options{
		Transport: tr,
		Logger:    log,
		Observer:  obs,
		History:   openHistory(log),
	})
	go func() { _ = coordinator.Run(ctx) }()

	go func() {
		<-ctx.Done()
		_ = tr.Close()
		_ = client.Close()
	}()

	fmt.Printf("your peer id: %s\n", client.PeerID())
	return coordinator, nil
}

// openHistory opens the history store, or returns nil when it cannot:
// transfers still work without history.
func openHistory(log *logrus.Logger) session.HistoryRecorder {
	if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
		log.Warnf("cannot create history directory: %v", err)
		return nil
	}
	s, err := store.NewStore(historyPath)
	if err != nil {
		log.Warnf("cannot open history store: %v", err)
		return nil
	}
	return s
}
