package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type stamped struct {
	text string
	at   time.Time
}

// cutoff drops anything received before the last Flush.
type cutoff struct {
	mu    sync.Mutex
	since time.Time
}

func (c *cutoff) Flush() {
	c.mu.Lock()
	c.since = time.Now()
	c.mu.Unlock()
}

func (c *cutoff) stale(s stamped) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.at.Before(c.since)
}

// LineSource reads one utterance per line from a text stream. A background
// goroutine drains the stream into a queue as soon as bytes arrive, so Next
// can be abandoned through its context and Flush can discard everything
// typed so far. The goroutine lives until the stream ends.
type LineSource struct {
	prompt io.Writer
	label  string

	once  sync.Once
	r     io.Reader
	ready chan struct{}

	mu       sync.Mutex
	queue    []string
	done     bool
	err      error
	prompted bool
}

// NewLineSource reads from r. When prompt is non-nil, label is written to it
// whenever Next has to wait for a new line.
func NewLineSource(r io.Reader, prompt io.Writer, label string) *LineSource {
	return &LineSource{
		r:      r,
		prompt: prompt,
		label:  label,
		ready:  make(chan struct{}, 1),
	}
}

func (s *LineSource) start() {
	go func() {
		sc := bufio.NewScanner(s.r)
		for sc.Scan() {
			s.mu.Lock()
			s.queue = append(s.queue, sc.Text())
			s.mu.Unlock()
			s.signal()
		}
		s.mu.Lock()
		s.done = true
		s.err = sc.Err()
		s.mu.Unlock()
		s.signal()
	}()
}

func (s *LineSource) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Flush drops every line read so far.
func (s *LineSource) Flush() {
	s.once.Do(s.start)
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

func (s *LineSource) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *LineSource) Next(ctx context.Context) (string, error) {
	s.once.Do(s.start)
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			line := s.queue[0]
			s.queue = s.queue[1:]
			s.prompted = false
			s.mu.Unlock()
			return line, nil
		}
		if s.done {
			err := s.err
			s.mu.Unlock()
			if err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if !s.prompted && s.prompt != nil && s.label != "" {
			fmt.Fprint(s.prompt, s.label)
			s.prompted = true
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.ready:
		}
	}
}

// ChanSource is fed programmatically, e.g. by a TUI input box.
type ChanSource struct {
	cutoff
	ch     chan stamped
	closed chan struct{}
	once   sync.Once
}

func NewChanSource(buffer int) *ChanSource {
	return &ChanSource{
		ch:     make(chan stamped, buffer),
		closed: make(chan struct{}),
	}
}

// Submit queues an utterance. It reports false when the buffer is full or
// the source is closed.
func (s *ChanSource) Submit(text string) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.ch <- stamped{text: text, at: time.Now()}:
		return true
	default:
		return false
	}
}

// Close makes Next return io.EOF once the buffer is drained.
func (s *ChanSource) Close() {
	s.once.Do(func() { close(s.closed) })
}

func (s *ChanSource) Next(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case u := <-s.ch:
			if s.stale(u) {
				continue
			}
			return u.text, nil
		case <-s.closed:
			select {
			case u := <-s.ch:
				if !s.stale(u) {
					return u.text, nil
				}
				continue
			default:
				return "", io.EOF
			}
		}
	}
}

// WriterSink prints each response on its own line with a prefix.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

func NewWriterSink(w io.Writer, prefix string) *WriterSink {
	return &WriterSink{w: w, prefix: prefix}
}

func (s *WriterSink) Emit(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s%s\n", s.prefix, text)
	return err
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, text string) error

func (f SinkFunc) Emit(ctx context.Context, text string) error {
	return f(ctx, text)
}

// MultiSink emits to every sink in order and returns the first error.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, text string) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}
