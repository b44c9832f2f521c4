// Package progress renders search progress with a terminal progress bar.
package progress

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// Bar reports attempted candidates. A total below one means the size of
// the search space is unknown and only the counter is shown.
type Bar struct {
	out io.Writer

	mu  sync.Mutex
	bar *pb.ProgressBar
}

func New(out io.Writer) *Bar {
	return &Bar{out: out}
}

func (b *Bar) Start(total int64) {
	tmpl := pb.Full
	if total < 1 {
		total = 0
		tmpl = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{speed . }}`
	}

	bar := tmpl.New(0).SetTotal(total).SetWriter(b.out).Set("prefix", "passwords")

	b.mu.Lock()
	b.bar = bar
	b.mu.Unlock()
	bar.Start()
}

func (b *Bar) Add(n int) {
	if bar := b.current(); bar != nil {
		bar.Add(n)
	}
}

func (b *Bar) Finish() {
	if bar := b.current(); bar != nil {
		bar.Finish()
	}
}

func (b *Bar) current() *pb.ProgressBar {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar
}
