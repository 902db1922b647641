package transcript

import (
	"log/slog"
	"sync"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en-US"

// Config configures an Accumulator.
type Config struct {
	// Locale is the recognition language tag. Defaults to DefaultLocale.
	Locale string

	// Logger receives session lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger

	// OnChange, if set, is called with a snapshot after every change. It is
	// called without the accumulator's lock held, possibly from the event
	// goroutine; use State.Seq to discard out-of-order snapshots.
	OnChange func(State)
}

// Accumulator owns the live dictation session. At most one recognition
// session is active at a time; events from a session that has been aborted
// or replaced are discarded.
type Accumulator struct {
	recognizer Recognizer
	locale     string
	logger     *slog.Logger
	onChange   func(State)

	mu        sync.Mutex
	m         machine
	session   Session
	sessionID string
	gen       uint64
	done      chan struct{}
}

// New creates an Accumulator. A nil recognizer is allowed; Start then fails
// with CAPABILITY_UNAVAILABLE.
func New(recognizer Recognizer, cfg Config) *Accumulator {
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	done := make(chan struct{})
	close(done)
	return &Accumulator{
		recognizer: recognizer,
		locale:     cfg.Locale,
		logger:     cfg.Logger,
		onChange:   cfg.OnChange,
		done:       done,
	}
}

// State returns a snapshot of the current session state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.m.state
}

// Transcript returns confirmed text followed by interim text.
func (a *Accumulator) Transcript() string {
	return a.State().Transcript()
}

// Done returns a channel that is closed when the current session's event
// stream has ended. With no session it is already closed.
func (a *Accumulator) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Start opens a continuous recognition session with interim results. An
// active session is aborted first.
func (a *Accumulator) Start() error {
	a.mu.Lock()
	a.teardownLocked("restart")

	if a.recognizer == nil {
		return a.failStartLocked(errors.NewCapabilityUnavailable("speech", nil))
	}

	sess, err := a.recognizer.Open(Options{
		Continuous:     true,
		InterimResults: true,
		Lang:           a.locale,
	})
	if err != nil {
		return a.failStartLocked(wrapStartError(err))
	}
	if err := sess.Start(); err != nil {
		sess.Abort()
		return a.failStartLocked(wrapStartError(err))
	}

	a.gen++
	gen := a.gen
	a.session = sess
	a.sessionID = newSessionID()
	a.done = make(chan struct{})
	a.m.started()
	snap := a.m.state
	id, done := a.sessionID, a.done
	a.mu.Unlock()

	a.logger.Info("dictation started", "session", id, "locale", a.locale)
	go a.pump(gen, id, sess, done)
	a.notify(snap)
	return nil
}

// failStartLocked records err, releases the lock and returns err.
func (a *Accumulator) failStartLocked(err error) error {
	a.m.fail(err)
	snap := a.m.state
	a.mu.Unlock()

	a.notify(snap)
	return err
}

// Stop asks the backend to end capture. Residual interim text is folded into
// the confirmed text immediately; listening ends when the backend reports the
// end of the session.
func (a *Accumulator) Stop() error {
	a.mu.Lock()
	a.m.stop()
	snap := a.m.state
	sess, id := a.session, a.sessionID
	a.mu.Unlock()

	a.notify(snap)
	if sess == nil {
		return nil
	}
	a.logger.Info("dictation stopping", "session", id)
	if err := sess.Stop(); err != nil {
		return errors.NewServiceError(err.Error())
	}
	return nil
}

// Reset aborts any active session and clears the transcript and error.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.teardownLocked("reset")
	a.m.reset()
	snap := a.m.state
	a.mu.Unlock()

	a.notify(snap)
}

// SetText replaces the confirmed text and clears the interim text.
func (a *Accumulator) SetText(text string) {
	a.mu.Lock()
	a.m.setText(text)
	snap := a.m.state
	a.mu.Unlock()

	a.notify(snap)
}

// Close aborts any active session. It is safe to call more than once.
func (a *Accumulator) Close() {
	a.mu.Lock()
	hadSession := a.session != nil
	a.teardownLocked("close")
	snap := a.m.state
	a.mu.Unlock()

	if hadSession {
		a.notify(snap)
	}
}

// teardownLocked aborts the active session, if any. Events it still delivers
// are discarded by generation.
func (a *Accumulator) teardownLocked(reason string) {
	if a.session == nil {
		return
	}
	a.logger.Debug("dictation aborted", "session", a.sessionID, "reason", reason)
	a.session.Abort()
	a.session = nil
	a.gen++
	a.m.ended()
}

// pump is the single consumer of a session's events.
func (a *Accumulator) pump(gen uint64, id string, sess Session, done chan struct{}) {
	defer close(done)
	for ev := range sess.Events() {
		a.dispatch(gen, ev)
	}

	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return
	}
	a.session = nil
	changed := a.m.state.Listening
	if changed {
		a.m.ended()
	}
	snap := a.m.state
	a.mu.Unlock()

	a.logger.Info("dictation ended", "session", id)
	if changed {
		a.notify(snap)
	}
}

func (a *Accumulator) dispatch(gen uint64, ev Event) {
	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return
	}
	if ev.Type == EventError {
		if ev.Error == CodeNoSpeech {
			a.logger.Debug("no speech detected", "session", a.sessionID)
		} else {
			a.logger.Warn("recognition error", "session", a.sessionID, "code", ev.Error)
		}
	}
	changed := a.m.apply(ev)
	if ev.Type == EventEnd {
		a.session = nil
	}
	snap := a.m.state
	a.mu.Unlock()

	if changed {
		a.notify(snap)
	}
}

func (a *Accumulator) notify(s State) {
	if a.onChange != nil {
		a.onChange(s)
	}
}

func wrapStartError(err error) error {
	if errors.Is(err, errors.ErrPermissionDenied) || errors.Is(err, errors.ErrCapabilityUnavailable) {
		return err
	}
	return errors.NewCapabilityUnavailable("speech", err)
}

// newSessionID returns a short random id used to correlate session logs.
func newSessionID() string {
	id, err := nanoid.New()
	if err != nil {
		return "unknown"
	}
	return id
}
