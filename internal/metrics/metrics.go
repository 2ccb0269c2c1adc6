package metrics

import "time"

// Recorder receives ledger and chat events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordTransfer(result string, duration time.Duration)
	RecordGrant(kind, result string)
	RecordChatPublished(recipients int)
	RecordChatDropped()
	SetChatSubscribers(count int)
}

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Noop discards everything.
type Noop struct{}

func (Noop) RecordTransfer(string, time.Duration) {}
func (Noop) RecordGrant(string, string)           {}
func (Noop) RecordChatPublished(int)              {}
func (Noop) RecordChatDropped()                   {}
func (Noop) SetChatSubscribers(int)               {}
