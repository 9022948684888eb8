// Package device implements SerialDevice using go.bug.st/serial,
// which provides real serial communication support for GPS receivers,
// pose feeds and controller links.
package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

type lineResult struct {
	line string
	err  error
}

// SerialDevice implements Device using go.bug.st/serial. A single background
// goroutine reads lines so a timed-out ReadLine never drops data.
type SerialDevice struct {
	port  io.ReadWriteCloser
	lines chan lineResult
	done  chan struct{}
	once  sync.Once
	wmu   sync.Mutex
}

// NewSerialDevice opens a serial device with the given path and baudrate.
func NewSerialDevice(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	return NewLineDevice(p), nil
}

// NewLineDevice wraps any byte stream (a serial port, a pipe in tests) as a Device.
func NewLineDevice(rw io.ReadWriteCloser) *SerialDevice {
	s := &SerialDevice{
		port:  rw,
		lines: make(chan lineResult, 16),
		done:  make(chan struct{}),
	}
	go s.readLoop(bufio.NewReader(rw))
	return s
}

func (s *SerialDevice) readLoop(r *bufio.Reader) {
	defer close(s.lines)
	for {
		line, err := r.ReadString('\n')
		if line != "" || err != nil {
			select {
			case s.lines <- lineResult{line: line, err: err}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// ReadLine returns the next line, blocking until one arrives or the timeout expires.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	var after <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		after = t.C
	}
	select {
	case res, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	case <-after:
		return "", ErrTimeout
	case <-s.done:
		return "", errors.New("serial port closed")
	}
}

// WriteLine writes a single line followed by '\n' to the serial port.
func (s *SerialDevice) WriteLine(line string) error {
	select {
	case <-s.done:
		return errors.New("serial port closed")
	default:
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.port.Write(append([]byte(line), '\n'))
	return err
}

// Close closes the underlying serial connection. It is safe to call twice.
func (s *SerialDevice) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.port.Close()
	})
	return err
}
