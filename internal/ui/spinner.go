package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

const barWidth = 24

// Spinner displays an animated progress indicator, by default on stderr.
type Spinner struct {
	mu    sync.Mutex
	out   io.Writer
	msg   string
	done  int
	total int
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewSpinner creates a new Spinner (not yet running).
func NewSpinner() *Spinner {
	return &Spinner{out: os.Stderr}
}

// Start begins the spinner animation with the given message.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(stop)
}

// Update changes the spinner message while it's running.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Progress switches the spinner to a progress bar showing done of total.
func (s *Spinner) Progress(done, total int) {
	s.mu.Lock()
	s.done, s.total = done, total
	s.mu.Unlock()
}

// Stop halts the spinner and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.wg.Wait()

	fmt.Fprintf(s.out, "\r\033[K")
}

func (s *Spinner) run(stop <-chan struct{}) {
	defer s.wg.Done()
	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()

	i := 0
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			fmt.Fprintf(s.out, "\r\033[K%c %s", frames[i%len(frames)], s.line())
			i++
		}
	}
}

func (s *Spinner) line() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 {
		return s.msg
	}
	return fmt.Sprintf("%s %s", renderBar(s.done, s.total), s.msg)
}

// renderBar draws "[#####-----]  42% (420/1000)".
func renderBar(done, total int) string {
	if total <= 0 {
		return ""
	}
	done = min(max(done, 0), total)
	filled := done * barWidth / total
	return fmt.Sprintf("[%s%s] %3d%% (%d/%d)",
		strings.Repeat("#", filled),
		strings.Repeat("-", barWidth-filled),
		done*100/total, done, total)
}
