package diag

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Progress is a step-based progress bar for the compile set: it
// advances by discrete completed sources rather than bytes written,
// since cbld has no streaming transfer to report on.
type Progress struct {
	Total      int
	Current    int
	W          io.Writer
	lastPrint  time.Time
	throbIndex int
}

var throbbers = []rune{'|', '/', '-', '\\'}

func NewProgress(total int, w io.Writer) *Progress {
	return &Progress{Total: total, W: w, lastPrint: time.Now()}
}

// Advance marks one more unit of work done and repaints, at most every
// 40ms so a fast build doesn't flood the terminal.
func (p *Progress) Advance(label string) {
	p.Current++
	if time.Since(p.lastPrint) > 40*time.Millisecond || p.Current == p.Total {
		p.print(label, p.Current == p.Total)
		p.lastPrint = time.Now()
	}
}

func (p *Progress) print(label string, finish bool) {
	width := 30
	percent := float64(p.Current) / float64(max(p.Total, 1))
	if finish {
		percent = 1
	}
	filled := min(int(percent*float64(width)), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("-", width-filled)

	throb := throbbers[p.throbIndex%len(throbbers)]
	p.throbIndex++
	if finish {
		throb = ' '
	}

	fmt.Fprintf(p.W, "\r%6.f%% [%s] %c %s", percent*100, bar, throb, label)
	if finish {
		fmt.Fprintln(p.W)
	}
}
