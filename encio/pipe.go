package encio

import (
	"io"
	"sync"
)

// Pipe returns a synchronous, buffered pipe.
// Writes never block; they append to a shared Buffer that reads drain.
// Closing the writer lets the reader drain what is buffered before it returns io.EOF,
// and closing the reader makes subsequent writes return io.ErrClosedPipe.
func Pipe() (*PipeReader, *PipeWriter) {
	p := &pipe{
		cond: sync.NewCond(new(sync.Mutex)),
		buff: NewBuffer(nil),
	}
	return &PipeReader{p}, &PipeWriter{p}
}

type pipe struct {
	cond *sync.Cond
	buff *Buffer
	rerr error // returned to readers once buff is empty
	werr error // returned to writers
}

// PipeReader implements the reading half of a pipe.
type PipeReader struct {
	p *pipe
}

// Read implements io.Reader.
// It blocks until data is written or the writer is closed.
func (r *PipeReader) Read(buff []byte) (int, error) {
	p := r.p
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	for p.buff.Len() == 0 && p.rerr == nil {
		p.cond.Wait()
	}
	if p.buff.Len() == 0 {
		return 0, p.rerr
	}

	n, _ := p.buff.Read(buff)
	return n, nil
}

// Close implements io.Closer.
func (r *PipeReader) Close() error {
	p := r.p
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	p.werr = io.ErrClosedPipe
	if p.rerr == nil {
		p.rerr = io.ErrClosedPipe
	}
	p.cond.Broadcast()
	return nil
}

// PipeWriter implements the writing half of a pipe.
type PipeWriter struct {
	p *pipe
}

// Write implements io.Writer.
func (w *PipeWriter) Write(buff []byte) (int, error) {
	p := w.p
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	if p.werr != nil {
		return 0, p.werr
	}

	n, err := p.buff.Write(buff)
	p.cond.Broadcast()
	return n, err
}

// Close implements io.Closer.
// Readers see io.EOF after the buffered data.
func (w *PipeWriter) Close() error {
	w.CloseWith(io.EOF)
	return nil
}

// CloseWith closes the writer, making readers return err after the buffered data.
func (w *PipeWriter) CloseWith(err error) {
	p := w.p
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	if p.werr == nil {
		p.werr = io.ErrClosedPipe
	}
	if p.rerr == nil {
		p.rerr = err
	}
	p.cond.Broadcast()
}
