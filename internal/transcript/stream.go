package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
)

// CodeBadEvent is reported when a stream line cannot be decoded.
const CodeBadEvent = "bad-event"

// StreamRecognizer reads recognition events as NDJSON, one Event per line.
// A browser bridge or a local speech daemon emits this shape.
type StreamRecognizer struct {
	// Dial opens the event stream for a new session.
	Dial func(opts Options) (io.ReadCloser, error)

	// StopFunc, if set, asks the source to finish the session gracefully; the
	// stream then ends on its own. If nil, Stop closes the stream.
	StopFunc func(stream io.ReadCloser) error

	// shared is set for a reader that outlives its sessions.
	shared *lineFeed
}

// NewReaderRecognizer serves sessions from r. Each session continues reading
// where the previous one stopped: Stop ends the session at a line boundary
// and leaves the rest of r for the next one. r is never closed.
func NewReaderRecognizer(r io.Reader) *StreamRecognizer {
	return &StreamRecognizer{shared: newLineFeed(r, nil)}
}

// lineFeed reads a stream line by line from a single goroutine. The lines
// channel is closed when the stream ends.
type lineFeed struct {
	r     io.Reader
	lines chan []byte
	quit  <-chan struct{}
	once  sync.Once
}

func newLineFeed(r io.Reader, quit <-chan struct{}) *lineFeed {
	return &lineFeed{r: r, lines: make(chan []byte), quit: quit}
}

func (f *lineFeed) start() {
	f.once.Do(func() { go f.run() })
}

func (f *lineFeed) run() {
	defer close(f.lines)
	scanner := bufio.NewScanner(f.r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.Clone(scanner.Bytes())
		select {
		case f.lines <- line:
		case <-f.quit:
			return
		}
	}
}

// socketCommand is written to a speech daemon socket.
type socketCommand struct {
	Cmd            string `json:"cmd"`
	Lang           string `json:"lang,omitempty"`
	Continuous     bool   `json:"continuous,omitempty"`
	InterimResults bool   `json:"interimResults,omitempty"`
}

// NewSocketRecognizer talks to a speech daemon on a unix socket: it sends a
// start command on dial and a stop command on Stop, then reads events until
// the daemon closes the stream.
func NewSocketRecognizer(socketPath string) *StreamRecognizer {
	return &StreamRecognizer{
		Dial: func(opts Options) (io.ReadCloser, error) {
			conn, err := net.Dial("unix", socketPath)
			if err != nil {
				return nil, fmt.Errorf("connect to speech daemon: %w", err)
			}
			cmd := socketCommand{
				Cmd:            "start",
				Lang:           opts.Lang,
				Continuous:     opts.Continuous,
				InterimResults: opts.InterimResults,
			}
			if err := writeCommand(conn, cmd); err != nil {
				conn.Close()
				return nil, err
			}
			return conn, nil
		},
		StopFunc: func(stream io.ReadCloser) error {
			w, ok := stream.(io.Writer)
			if !ok {
				return stream.Close()
			}
			return writeCommand(w, socketCommand{Cmd: "stop"})
		},
	}
}

func writeCommand(w io.Writer, cmd socketCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// Open implements Recognizer.
func (r *StreamRecognizer) Open(opts Options) (Session, error) {
	if r == nil || (r.Dial == nil && r.shared == nil) {
		return nil, fmt.Errorf("no event stream configured")
	}
	sess := &streamSession{
		events:  make(chan Event, 64),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if r.shared != nil {
		sess.feed = r.shared
		return sess, nil
	}

	stream, err := r.Dial(opts)
	if err != nil {
		return nil, err
	}
	sess.stream = stream
	sess.stopFunc = r.StopFunc
	sess.feed = newLineFeed(stream, sess.quit)
	return sess, nil
}

type streamSession struct {
	feed *lineFeed
	// stream is nil when the session reads a shared feed.
	stream   io.ReadCloser
	stopFunc func(io.ReadCloser) error
	events   chan Event

	startOnce sync.Once
	quitOnce  sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	stopped   chan struct{}
}

func (s *streamSession) Events() <-chan Event {
	return s.events
}

func (s *streamSession) Start() error {
	s.startOnce.Do(func() {
		s.feed.start()
		go s.read()
	})
	return nil
}

func (s *streamSession) Stop() error {
	switch {
	case s.stream == nil:
		s.stopOnce.Do(func() { close(s.stopped) })
		return nil
	case s.stopFunc != nil:
		return s.stopFunc(s.stream)
	default:
		return s.stream.Close()
	}
}

func (s *streamSession) Abort() {
	s.quitOnce.Do(func() {
		close(s.quit)
		if s.stream != nil {
			s.stream.Close()
		}
	})
	// Abort before Start: nothing will ever close the channel otherwise.
	s.startOnce.Do(func() {
		close(s.events)
	})
}

// read decodes lines until the stream ends or the session is stopped, then
// reports end of session.
func (s *streamSession) read() {
	defer close(s.events)

	if !s.send(Event{Type: EventStart}) {
		return
	}

	for {
		select {
		case <-s.stopped:
			s.send(Event{Type: EventEnd})
			return
		default:
		}

		var line []byte
		var ok bool
		select {
		case line, ok = <-s.feed.lines:
		case <-s.stopped:
			s.send(Event{Type: EventEnd})
			return
		case <-s.quit:
			return
		}
		if !ok {
			s.send(Event{Type: EventEnd})
			return
		}
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			ev = Event{Type: EventError, Error: CodeBadEvent}
		}
		if !s.send(ev) {
			return
		}
	}
}

// send delivers ev unless the session was aborted.
func (s *streamSession) send(ev Event) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}
