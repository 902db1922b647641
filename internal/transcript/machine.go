package transcript

import (
	"strings"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

// State is a snapshot of the dictation session.
type State struct {
	Confirmed string
	Interim   string
	Listening bool
	Err       error

	// Seq increases with every change; observers drop snapshots older than
	// the last one they saw.
	Seq uint64
}

// Transcript returns the visible transcript: confirmed text followed by the
// current interim hypothesis.
func (s State) Transcript() string {
	return s.Confirmed + s.Interim
}

// machine is the synchronous reducer behind Accumulator. It is not safe for
// concurrent use.
type machine struct {
	state State

	// stopping is set between Stop and the end of the session.
	stopping bool
	// folded is the byte length of interim text folded into Confirmed by the
	// last stop; a final result arriving afterwards replaces it.
	folded int
}

func (m *machine) bump() {
	m.state.Seq++
}

// started marks a successful start.
func (m *machine) started() {
	m.state.Listening = true
	m.state.Err = nil
	m.stopping = false
	m.folded = 0
	m.bump()
}

// apply reduces one event into the state. It reports whether anything
// observable changed.
func (m *machine) apply(ev Event) bool {
	switch ev.Type {
	case EventStart:
		if m.state.Listening {
			return false
		}
		m.state.Listening = true
	case EventEnd:
		if !m.state.Listening {
			m.stopping = false
			return false
		}
		m.state.Listening = false
		m.stopping = false
		m.folded = 0
	case EventError:
		err := classify(ev.Error)
		if err == nil {
			return false
		}
		m.state.Err = err
	case EventResult:
		if !m.applyResults(ev) {
			return false
		}
	default:
		return false
	}
	m.bump()
	return true
}

func (m *machine) applyResults(ev Event) bool {
	start := max(ev.ResultIndex, 0)
	if start >= len(ev.Results) {
		return false
	}

	var finals strings.Builder
	interim := ""
	for _, r := range ev.Results[start:] {
		if r.IsFinal {
			finals.WriteString(r.Transcript)
			finals.WriteString(" ")
		} else {
			interim = r.Transcript
		}
	}

	if m.stopping {
		// The fold already stands in for the draft; only a final may
		// replace it.
		if finals.Len() == 0 {
			return false
		}
		if m.folded > 0 && m.folded <= len(m.state.Confirmed) {
			m.state.Confirmed = m.state.Confirmed[:len(m.state.Confirmed)-m.folded]
		}
		m.folded = 0
		m.state.Confirmed += finals.String()
		return true
	}

	m.state.Confirmed += finals.String()
	m.state.Interim = interim
	return true
}

// stop folds the residual interim text into the confirmed text.
func (m *machine) stop() {
	m.stopping = true
	if m.state.Interim != "" {
		fold := m.state.Interim + " "
		m.state.Confirmed += fold
		m.state.Interim = ""
		m.folded = len(fold)
	}
	m.bump()
}

// ended marks the session as finished without an end event.
func (m *machine) ended() {
	m.state.Listening = false
	m.stopping = false
	m.folded = 0
	m.bump()
}

func (m *machine) reset() {
	seq := m.state.Seq
	*m = machine{}
	m.state.Seq = seq
	m.bump()
}

func (m *machine) setText(text string) {
	m.state.Confirmed = text
	m.state.Interim = ""
	m.folded = 0
	m.bump()
}

func (m *machine) fail(err error) {
	m.state.Err = err
	m.bump()
}

// classify maps a backend error code to the error surfaced to the user.
// Benign codes return nil.
func classify(code string) error {
	switch code {
	case CodeNoSpeech:
		return nil
	case CodeNotAllowed, CodeServiceNotAllowed:
		return errors.NewPermissionDenied(code)
	default:
		return errors.NewServiceError(code)
	}
}
