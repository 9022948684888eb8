package util

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

// SocatManager owns socat processes that link pairs of pseudo terminals, so
// the simulator and the updater can talk over a virtual serial line.
type SocatManager struct {
	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool
}

// NewSocatManager initializes an empty manager.
func NewSocatManager() *SocatManager {
	return &SocatManager{}
}

// CreatePair starts socat linking two PTYs at the given paths and waits up to
// timeout for both links to appear.
func (m *SocatManager) CreatePair(left, right string, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("socat manager already cleaned up")
	}

	cmd := exec.Command(
		"socat", "-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	)
	cmd.Stdout = log.Writer()
	cmd.Stderr = log.Writer()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}
	log.Printf("[socat] pid=%d: %s <-> %s", cmd.Process.Pid, left, right)
	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)

	deadline := time.Now().Add(timeout)
	for _, link := range []string{left, right} {
		for {
			if _, err := os.Lstat(link); err == nil {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("socat link %s not ready after %v", link, timeout)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	return nil
}

// Links returns the link paths created so far.
func (m *SocatManager) Links() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.links...)
}

// Cleanup stops the socat processes and removes their links. It is safe to
// call more than once.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}
	for _, path := range m.links {
		if _, err := os.Lstat(path); err == nil {
			_ = os.Remove(path)
		}
	}
	log.Printf("[socat] cleanup complete (%d pairs)", len(m.links)/2)
}
