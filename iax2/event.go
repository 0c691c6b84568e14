package iax2

// EventType enumerates the kinds of IAXEvent the event pump delivers to
// user code (spec.md §4.7 "Event pump").
type EventType int

const (
	EventNew EventType = iota
	EventAuthRep
	EventAccept
	EventReject
	EventHangup
	EventBusy
	EventRinging
	EventAnswer
	EventText
	EventDTMF
	EventTimeout
	EventTerminate
)

// Event carries a strong reference to the transaction it came from, plus
// the frame type/subclass and IE list that produced it (spec.md §3.2,
// §4.7). final, when true together with Transaction in StateTerminated,
// tells the engine to release the local call number and drop the
// transaction (spec.md §4.7).
type Event struct {
	Type        EventType
	Local       bool
	Final       bool
	Transaction *Transaction
	FrameType   FrameType
	Subclass    uint8
	IEs         *IEList
}
