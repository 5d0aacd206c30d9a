package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/benmaier/couzinswarm/swarm"
)

// Progress reports simulation progress. On a terminal it redraws a single
// percentage line; otherwise it logs every interval steps.
type Progress struct {
	out      io.Writer
	tty      bool
	interval int
	logger   *slog.Logger
	color    *color.Color

	started time.Time
	lastPct int
}

// NewProgress creates a progress reporter writing to out. A nil logger
// means slog.Default().
func NewProgress(out io.Writer, interval int, logger *slog.Logger) *Progress {
	if logger == nil {
		logger = slog.Default()
	}
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &Progress{
		out:      out,
		tty:      tty,
		interval: interval,
		logger:   logger,
		color:    color.New(color.FgCyan),
		lastPct:  -1,
	}
}

// Func returns p as a swarm.ProgressFunc.
func (p *Progress) Func() swarm.ProgressFunc {
	return p.Update
}

// Update records that step of total steps has completed.
func (p *Progress) Update(step, total int) {
	if step == 0 {
		p.started = time.Now()
		p.lastPct = -1
	}
	pct := 100
	if total > 0 {
		pct = step * 100 / total
	}

	if p.tty {
		if pct != p.lastPct {
			p.color.Fprintf(p.out, "\r%3d%% (%d/%d)", pct, step, total)
			p.lastPct = pct
		}
		if step == total {
			fmt.Fprintln(p.out)
		}
		return
	}

	if step == 0 || step == total || (p.interval > 0 && step%p.interval == 0) {
		p.logger.Info("progress",
			"step", step,
			"total", total,
			"pct", pct,
			"elapsed", time.Since(p.started).Round(time.Millisecond),
		)
	}
}
