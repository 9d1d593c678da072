package app

import (
	"bufio"
	"os"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dshills/vscripting/internal/surface"
)

// minContent is the smallest page drawn for a file.
var minContent = surface.Dimension{Width: 40, Height: 12}

// pageContent is the page a source file is laid out on: one cell per
// character, one row per line.
type pageContent struct {
	path string
	size atomic.Pointer[surface.Dimension]
}

func newPageContent(path string) *pageContent {
	c := &pageContent{path: path}
	c.size.Store(&minContent)
	return c
}

// Measure re-reads the file. A missing file keeps the minimum size.
func (c *pageContent) Measure() error {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.size.Store(&minContent)
			return nil
		}
		return err
	}
	defer f.Close()

	d := minContent
	lines := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines++
		d.Width = max(d.Width, utf8.RuneCount(sc.Bytes()))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	d.Height = max(d.Height, lines)
	c.size.Store(&d)
	return nil
}

// PreferredSize implements surface.Content.
func (c *pageContent) PreferredSize() surface.Dimension {
	return *c.size.Load()
}

// Offset implements surface.Content.
func (c *pageContent) Offset() surface.Dimension {
	return surface.Dimension{Width: 1, Height: 1}
}
