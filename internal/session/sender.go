package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"peerdrop/internal/errs"
	"peerdrop/internal/protocol"
	"peerdrop/internal/transport"
)

// Sender streams one file over an open connection as ordered fixed-size
// chunks. It is driven by the coordinator but usable on its own; Send
// blocks until the transfer finishes or fails, so run it off the
// dispatch goroutine.
type Sender struct {
	conn       transport.Conn
	codec      *protocol.Codec
	logger     *logrus.Logger
	pause      time.Duration
	progressFn func(int)
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewSender(conn transport.Conn, log *logrus.Logger, pause time.Duration, progressFn func(int)) *Sender {
	return &Sender{
		conn:       conn,
		codec:      protocol.NewCodec(),
		logger:     log,
		pause:      pause,
		progressFn: progressFn,
		sleep:      sleepFor,
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send emits FileStart, the chunk sequence, and FileComplete. It checks
// for cancellation around every chunk so that a closed connection stops
// the loop promptly, and it never emits FileComplete after a failure.
func (s *Sender) Send(ctx context.Context, f File) error {
	s.logger.Infof("sending %q (%d bytes, %s) to peer %s", f.Name, f.Size, f.MimeType, s.conn.PeerID())

	start := &protocol.FileStart{Name: f.Name, Size: f.Size, MimeType: f.MimeType}
	if err := s.write(start); err != nil {
		return errs.NewTransferError(f.Name, err)
	}

	if f.Size > 0 {
		if err := s.sendChunks(ctx, f); err != nil {
			return err
		}
	}
	s.report(100)

	complete := &protocol.FileComplete{Name: f.Name, Size: f.Size, MimeType: f.MimeType}
	if err := s.write(complete); err != nil {
		return errs.NewTransferError(f.Name, err)
	}

	s.logger.Infof("finished sending %q", f.Name)
	return nil
}

func (s *Sender) sendChunks(ctx context.Context, f File) error {
	var (
		sent  uint64
		index uint32
	)
	for offset := 0; offset < len(f.Content); {
		select {
		case <-ctx.Done():
			return errs.NewTransferError(f.Name, ctx.Err())
		default:
		}

		end := offset + protocol.ChunkSize
		if end > len(f.Content) {
			end = len(f.Content)
		}

		before := sent
		sent += uint64(end - offset)
		pct := progressPercent(sent, f.Size)

		chunk := &protocol.FileChunk{
			Index:    index,
			Data:     f.Content[offset:end],
			Progress: uint32(pct),
		}
		if err := s.write(chunk); err != nil {
			return errs.NewTransferError(f.Name, err)
		}
		s.report(pct)

		index++
		offset = end

		// Voluntary throttle: pause whenever the cumulative byte count
		// crosses a PaceWindow boundary. This is a placeholder for real
		// backpressure; the transport exposes no outbound buffer level.
		if offset < len(f.Content) && crossedPaceWindow(before, sent) {
			if err := s.sleep(ctx, s.pause); err != nil {
				return errs.NewTransferError(f.Name, err)
			}
		}
	}
	return nil
}

func (s *Sender) write(msg protocol.Message) error {
	data, err := s.codec.EncodeToBytes(msg)
	if err != nil {
		return err
	}
	return s.conn.Send(data)
}

func (s *Sender) report(pct int) {
	if s.progressFn != nil {
		s.progressFn(pct)
	}
}

// progressPercent rounds sent/total to the nearest whole percent. A
// zero-byte file is 100% done the moment it starts.
func progressPercent(sent, total uint64) int {
	if total == 0 {
		return 100
	}
	return int((sent*100 + total/2) / total)
}

// crossedPaceWindow reports whether the cumulative byte count passed a
// PaceWindow multiple between before and sent.
func crossedPaceWindow(before, sent uint64) bool {
	return sent/protocol.PaceWindow > before/protocol.PaceWindow
}
