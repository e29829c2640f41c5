package parfor

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// barSink renders aggregated progress on the terminal: a primary
// completed/total bar and, optionally, a second meter for the task buffer
// (submitted-but-not-yet-completed tasks against the queue bound).
type barSink struct {
	bar     *progressbar.ProgressBar
	backlog *progressbar.ProgressBar
}

func newBarSink(conf *config, total, queueBound int) *barSink {
	s := &barSink{}
	if conf.bar {
		s.bar = progressbar.NewOptions64(int64(total),
			progressbar.OptionSetDescription(conf.desc),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	if conf.backlog {
		s.backlog = progressbar.NewOptions64(int64(queueBound),
			progressbar.OptionSetDescription("task buffer"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return s
}

func (s *barSink) Update(completed, backlog int64) {
	if s.bar != nil {
		_ = s.bar.Set64(completed)
	}
	if s.backlog != nil {
		if backlog > s.backlog.GetMax64() {
			s.backlog.ChangeMax64(backlog)
		}
		_ = s.backlog.Set64(backlog)
	}
}

func (s *barSink) Finish() {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
	if s.backlog != nil {
		_ = s.backlog.Close()
	}
}
