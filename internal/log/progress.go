package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressIndicator provides visual feedback for long-running scans.
type ProgressIndicator struct {
	mu           sync.Mutex
	out          io.Writer
	name         string
	total        int
	current      int
	startTime    time.Time
	spinner      *Spinner
	showProgress bool
	showETA      bool
	quiet        bool
}

// Spinner provides rotating visual feedback.
type Spinner struct {
	chars    []string
	current  int
	interval time.Duration
	stop     chan struct{}
	running  bool
	mu       sync.Mutex
}

// ProgressConfig configures progress indicator behavior.
type ProgressConfig struct {
	ShowSpinner  bool
	ShowProgress bool
	ShowETA      bool
	SpinnerStyle SpinnerStyle
}

// SpinnerStyle defines different spinner animations.
type SpinnerStyle string

const (
	SpinnerDots SpinnerStyle = "dots"
	SpinnerLine SpinnerStyle = "line"
)

// DefaultProgressConfig shows everything.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		ShowSpinner:  true,
		ShowProgress: true,
		ShowETA:      true,
		SpinnerStyle: SpinnerDots,
	}
}

// QuietProgressConfig renders nothing; completion is still logged.
func QuietProgressConfig() ProgressConfig {
	return ProgressConfig{SpinnerStyle: SpinnerDots}
}

// ConfigFor picks the default config on a terminal and the quiet one
// otherwise, so redirected output stays free of control sequences.
func ConfigFor(out io.Writer) ProgressConfig {
	if IsTerminal(out) {
		return DefaultProgressConfig()
	}
	return QuietProgressConfig()
}

// NewProgressIndicator creates a progress indicator writing to out. A zero
// total is learned from the first Update.
func NewProgressIndicator(out io.Writer, name string, total int, config ProgressConfig) *ProgressIndicator {
	pi := &ProgressIndicator{
		out:          out,
		name:         name,
		total:        total,
		startTime:    time.Now(),
		showProgress: config.ShowProgress,
		showETA:      config.ShowETA,
		quiet:        !config.ShowSpinner && !config.ShowProgress && !config.ShowETA,
	}
	if config.ShowSpinner {
		pi.spinner = NewSpinner(config.SpinnerStyle)
		pi.spinner.Start()
	}
	return pi
}

// NewSpinner creates a spinner with the specified style.
func NewSpinner(style SpinnerStyle) *Spinner {
	s := &Spinner{
		interval: 100 * time.Millisecond,
		stop:     make(chan struct{}),
	}
	switch style {
	case SpinnerLine:
		s.chars = []string{"-", "\\", "|", "/"}
	default:
		s.chars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	}
	return s
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.spin()
}

// Stop terminates the spinner animation.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
}

func (s *Spinner) spin() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.current = (s.current + 1) % len(s.chars)
			s.mu.Unlock()
		}
	}
}

// Current returns the current spinner character.
func (s *Spinner) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chars[s.current]
}

// Update sets the current progress value. Its signature matches the
// scanner's progress hook.
func (pi *ProgressIndicator) Update(current, total int) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.current = current
	if total > 0 {
		pi.total = total
	}
	if !pi.quiet {
		pi.render()
	}
}

// Finish completes the progress indicator.
func (pi *ProgressIndicator) Finish(message string) {
	pi.end()
	duration := time.Since(pi.startTime).Round(time.Millisecond)
	if !pi.quiet {
		fmt.Fprintf(pi.out, "\r\033[K✅ %s: %s (%v)\n", pi.name, message, duration)
	}
	log.Debug().Str("task", pi.name).Dur("duration", duration).Int("samples", pi.current).Msg(message)
}

// Fail marks the progress as failed.
func (pi *ProgressIndicator) Fail(reason string) {
	pi.end()
	duration := time.Since(pi.startTime).Round(time.Millisecond)
	if !pi.quiet {
		fmt.Fprintf(pi.out, "\r\033[K❌ %s failed: %s (%v)\n", pi.name, reason, duration)
	}
}

func (pi *ProgressIndicator) end() {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if pi.spinner != nil {
		pi.spinner.Stop()
	}
}

// Line renders the current state without terminal control sequences.
func (pi *ProgressIndicator) Line() string {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.line()
}

func (pi *ProgressIndicator) render() {
	fmt.Fprint(pi.out, "\r\033[K"+pi.line())
}

func (pi *ProgressIndicator) line() string {
	var output strings.Builder
	if pi.spinner != nil {
		output.WriteString(pi.spinner.Current())
		output.WriteString(" ")
	}
	output.WriteString(pi.name)

	if pi.showProgress && pi.total > 0 {
		const barWidth = 20
		filled := min(barWidth*pi.current/pi.total, barWidth)
		output.WriteString(" [")
		output.WriteString(strings.Repeat("█", filled))
		output.WriteString(strings.Repeat("░", barWidth-filled))
		output.WriteString(fmt.Sprintf("] %d/%d (%.1f%%)", pi.current, pi.total, float64(pi.current)/float64(pi.total)*100))
	} else if pi.total > 0 {
		output.WriteString(fmt.Sprintf(" (%d/%d)", pi.current, pi.total))
	}

	if pi.showETA && pi.total > 0 && pi.current > 0 {
		elapsed := time.Since(pi.startTime)
		remaining := time.Duration(float64(elapsed) * float64(pi.total-pi.current) / float64(pi.current))
		output.WriteString(fmt.Sprintf(" ETA: %v", remaining.Round(time.Second)))
	}
	return output.String()
}
