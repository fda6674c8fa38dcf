package session

// Observer receives session notifications. All callbacks are optional
// and are invoked from the coordinator's dispatch goroutine, so they
// must not block for long.
type Observer struct {
	OnConnectionState func(ConnState)
	OnTransferState   func(Direction, TransferState)
	OnProgress        func(Direction, int)
	OnArtifact        func(*Artifact)
	OnError           func(error)
}

func (o Observer) connectionState(s ConnState) {
	if o.OnConnectionState != nil {
		o.OnConnectionState(s)
	}
}

func (o Observer) transferState(d Direction, s TransferState) {
	if o.OnTransferState != nil {
		o.OnTransferState(d, s)
	}
}

func (o Observer) progress(d Direction, pct int) {
	if o.OnProgress != nil {
		o.OnProgress(d, pct)
	}
}

func (o Observer) artifact(a *Artifact) {
	if o.OnArtifact != nil {
		o.OnArtifact(a)
	}
}

func (o Observer) failure(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}
