package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/timesync"
	"github.com/lbogdanov/nixieclock/internal/ui"
)

// Frame is one update of the clock face.
type Frame struct {
	// Epoch is the corrected UTC time in Unix seconds, 0 when unknown
	Epoch int64 `json:"epoch"`

	// Offset is the total UTC offset applied to Epoch, in seconds
	Offset int32 `json:"offset"`

	Synced   bool   `json:"synced"`
	Mode     string `json:"mode"`
	Degraded bool   `json:"degraded"`
}

// HasTime reports whether the frame carries a time reference.
func (f Frame) HasTime() bool {
	return f.Epoch != 0
}

// Local returns the frame time in the fixed zone of its offset.
func (f Frame) Local() time.Time {
	return time.Unix(f.Epoch, 0).In(timesync.Offset{Raw: f.Offset}.Zone())
}

// Digits returns "HH:MM:SS", or dashes when the frame has no time.
func (f Frame) Digits() string {
	if !f.HasTime() {
		return "--:--:--"
	}
	return f.Local().Format("15:04:05")
}

// Status is the one-line summary printed under the tubes.
func (f Frame) Status() string {
	switch {
	case f.Degraded:
		return fmt.Sprintf("%s mode, degraded", f.Mode)
	case !f.HasTime():
		return fmt.Sprintf("%s mode", f.Mode)
	case !f.Synced:
		return fmt.Sprintf("%s mode, UTC (offset not resolved)", f.Mode)
	default:
		return fmt.Sprintf("%s mode, %s", f.Mode, timesync.FormatOffset(f.Offset))
	}
}

// Display is anything that can show a frame. Implementations must not
// block the control loop.
type Display interface {
	Show(Frame)
}

// Multi fans a frame out to every display.
type Multi []Display

// Show implements Display.
func (m Multi) Show(f Frame) {
	for _, d := range m {
		if d != nil {
			d.Show(f)
		}
	}
}

// Log writes frames to the debug log.
type Log struct{}

// Show implements Display.
func (Log) Show(f Frame) {
	logging.Debug("Display frame",
		zap.String("time", f.Digits()),
		zap.Int32("offset", f.Offset),
		zap.Bool("synced", f.Synced),
		zap.String("mode", f.Mode),
		zap.Bool("degraded", f.Degraded),
	)
}

// Terminal draws the nixie face on a writer, redrawing in place when the
// writer is a terminal.
type Terminal struct {
	w       io.Writer
	inPlace bool

	mu    sync.Mutex
	lines int
}

// NewTerminal creates a terminal display. inPlace moves the cursor back
// over the previous face before drawing.
func NewTerminal(w io.Writer, inPlace bool) *Terminal {
	return &Terminal{w: w, inPlace: inPlace}
}

// Show implements Display.
func (t *Terminal) Show(f Frame) {
	face := Render(f)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inPlace && t.lines > 0 {
		fmt.Fprintf(t.w, "\x1b[%dA\x1b[J", t.lines)
	}
	fmt.Fprintln(t.w, face)
	t.lines = countLines(face)
}

// Render draws f as a nixie face.
func Render(f Frame) string {
	style := ui.MutedStyle
	switch {
	case f.Degraded:
		style = ui.WarningStyle
	case f.Synced:
		style = ui.SuccessStyle
	}
	return ui.RenderClockFace(f.Digits(), f.HasTime(), f.Status(), style)
}

func countLines(s string) int {
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
