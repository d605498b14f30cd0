package msg

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Counter is a throbber for work of unknown size, such as a directory scan.
type Counter struct {
	Label      string
	Current    int64
	Indent     int
	Start      time.Time
	W          io.Writer
	lastPrint  time.Time
	throbIndex int
}

var throbbers = []rune{'|', '/', '-', '\\'}

func NewCounter(label string, indent int, w io.Writer) *Counter {
	return &Counter{
		Label:     label,
		Indent:    indent,
		Start:     time.Now(),
		W:         w,
		lastPrint: time.Now(),
	}
}

// Add records n more items and redraws at most every 40ms.
func (c *Counter) Add(n int64) {
	c.Current += n
	if time.Since(c.lastPrint) > 40*time.Millisecond {
		c.print(false)
		c.lastPrint = time.Now()
	}
}

func (c *Counter) print(finish bool) {
	throb := throbbers[c.throbIndex%len(throbbers)]
	c.throbIndex++
	if finish {
		throb = ' '
	}

	fmt.Fprintf(c.W, "\r%s%s %d files %c",
		strings.Repeat(" ", c.Indent),
		c.Label,
		c.Current,
		throb,
	)
}

func (c *Counter) Finish() {
	c.print(true)
	fmt.Fprintf(c.W, "(%s)\n", time.Since(c.Start).Round(time.Millisecond))
}
