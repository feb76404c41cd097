package shell

import (
	"bytes"
	"errors"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// pipe connects a stage's output to the next stage. Everything written to the
// write end is drained into memory as it arrives so a stage never blocks on
// a full pipe while the shell waits for it to exit.
type pipe struct {
	r, w     *os.File
	buf      bytes.Buffer
	drain    errgroup.Group
	released bool
}

func openPipe() (*pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Op: "pipe", Err: err}
	}

	p := &pipe{r: r, w: w}
	p.drain.Go(func() error {
		_, err := io.Copy(&p.buf, p.r)
		return err
	})
	return p, nil
}

// Output closes the write end and returns everything written to the pipe.
func (p *pipe) Output() ([]byte, error) {
	if err := closeOnce(p.w); err != nil {
		return nil, err
	}
	if err := p.drain.Wait(); err != nil {
		return nil, err
	}
	return p.buf.Bytes(), nil
}

// Close releases both ends of the pipe.
func (p *pipe) Close() error {
	if p.released {
		return nil
	}
	p.released = true

	werr := closeOnce(p.w)
	// The drain exits once every writer is closed.
	_ = p.drain.Wait()
	rerr := closeOnce(p.r)

	if werr != nil {
		return werr
	}
	return rerr
}

func closeOnce(f *os.File) error {
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
