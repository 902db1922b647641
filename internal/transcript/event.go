// Package transcript accumulates live speech recognition results into a
// dictation transcript: finalized text plus the current draft hypothesis.
package transcript

// EventType names a recognition event.
type EventType string

const (
	EventStart  EventType = "start"
	EventEnd    EventType = "end"
	EventError  EventType = "error"
	EventResult EventType = "result"
)

// Recognition error codes reported by speech backends.
const (
	CodeNotAllowed        = "not-allowed"
	CodeServiceNotAllowed = "service-not-allowed"
	CodeNoSpeech          = "no-speech"
)

// Result is one slot of a recognizer's result list.
type Result struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

// Event is delivered by a recognition session. For result events, Results is
// the backend's result list and ResultIndex the first slot that changed.
type Event struct {
	Type        EventType `json:"event"`
	ResultIndex int       `json:"resultIndex,omitempty"`
	Results     []Result  `json:"results,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Options configure a recognition session.
type Options struct {
	Continuous     bool
	InterimResults bool
	Lang           string
}

// Recognizer is the speech recognition capability.
type Recognizer interface {
	Open(opts Options) (Session, error)
}

// Session is a single capture session. The events channel is closed when the
// session ends for any reason. Abort must not block on event delivery.
type Session interface {
	Events() <-chan Event
	Start() error
	Stop() error
	Abort()
}
