package prioritizer

import (
	"context"
	"io"
	"time"
)

// Fake replays fixed chunks. Err is returned from Prioritize; FailAfter > 0
// makes Recv fail with StreamErr once that many chunks were sent.
type Fake struct {
	Chunks    []string
	Err       error
	FailAfter int
	StreamErr error

	Got []TaskInput
}

func (f *Fake) Prioritize(_ context.Context, _ time.Time, tasks []TaskInput) (Stream, error) {
	f.Got = tasks
	if f.Err != nil {
		return nil, f.Err
	}
	return &fakeStream{f: f}, nil
}

type fakeStream struct {
	f *Fake
	i int
}

func (s *fakeStream) Recv() (string, error) {
	if s.f.FailAfter > 0 && s.i == s.f.FailAfter {
		return "", s.f.StreamErr
	}
	if s.i >= len(s.f.Chunks) {
		return "", io.EOF
	}
	c := s.f.Chunks[s.i]
	s.i++
	return c, nil
}

func (s *fakeStream) Close() error { return nil }
