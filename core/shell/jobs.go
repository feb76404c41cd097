package shell

import (
	"fmt"
	"io"
	"sync"
)

type job struct {
	id     int
	line   string
	status int
	err    error
}

// jobTable tracks pipelines running in the background.
type jobTable struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	lastID int
	done   []*job
}

// start runs fn in a new goroutine and returns the job's ID.
func (jt *jobTable) start(line string, fn func() (int, error)) int {
	jt.mu.Lock()
	jt.lastID++
	j := &job{id: jt.lastID, line: line}
	jt.mu.Unlock()

	jt.wg.Add(1)
	go func() {
		defer jt.wg.Done()
		j.status, j.err = fn()

		jt.mu.Lock()
		defer jt.mu.Unlock()
		jt.done = append(jt.done, j)
	}()

	return j.id
}

// finished returns and forgets the jobs that completed since the last call.
func (jt *jobTable) finished() []*job {
	jt.mu.Lock()
	defer jt.mu.Unlock()

	out := jt.done
	jt.done = nil
	return out
}

// report writes a line for each finished job.
func (jt *jobTable) report(w io.Writer) []*job {
	done := jt.finished()
	for _, j := range done {
		if j.err != nil {
			fmt.Fprintf(w, "[%d] failed %s: %v\n", j.id, j.line, j.err)
			continue
		}
		fmt.Fprintf(w, "[%d] done %s\n", j.id, j.line)
	}
	return done
}

// wait blocks until every job exits.
func (jt *jobTable) wait() {
	jt.wg.Wait()
}
