package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter moves formatting output off the calling goroutine. Lines are
// buffered and flushed whenever the queue runs dry, so bursts are written in
// one syscall per sink.
type asyncWriter struct {
	lines  chan []byte
	flush  chan chan error
	closed chan struct{}

	gate sync.RWMutex
	shut bool

	out *bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(sinks []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	live := make([]io.Writer, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	w := &asyncWriter{
		lines:  make(chan []byte, 512),
		flush:  make(chan chan error),
		closed: make(chan struct{}),
		out:    bufio.NewWriterSize(io.MultiWriter(live...), bufSize),
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.closed)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(w.out.Flush())
				return
			}
			if _, err := w.out.Write(line); err != nil {
				w.record(err)
			}
			if len(w.lines) == 0 {
				w.record(w.out.Flush())
			}
		case ack := <-w.flush:
			open := w.drain()
			ack <- w.out.Flush()
			if !open {
				return
			}
		}
	}
}

// drain writes every line already queued. It reports false once the queue
// has been closed.
func (w *asyncWriter) drain() bool {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return false
			}
			if _, err := w.out.Write(line); err != nil {
				w.record(err)
			}
		default:
			return true
		}
	}
}

// Write queues a copy of p. It blocks while the queue is full rather than
// dropping lines.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failed(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.shut {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued so far has reached the sinks.
func (w *asyncWriter) Flush() error {
	select {
	case <-w.closed:
		return w.failed()
	default:
	}
	ack := make(chan error, 1)
	select {
	case w.flush <- ack:
	case <-w.closed:
		return w.failed()
	}
	return errors.Join(w.failed(), <-ack)
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.shut {
		w.shut = true
		close(w.lines)
	}
	w.gate.Unlock()
	<-w.closed
	return w.failed()
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *asyncWriter) failed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
