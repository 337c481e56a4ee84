package models

import "context"

// Stream yields response fragments in arrival order. Recv returns io.EOF when
// the fragment sequence ends; any other error aborts the turn.
type Stream interface {
	Recv() (*Chunk, error)
	Close() error
}

// Backend is a model provider. Complete performs one blocking completion.
// CompleteStreaming returns a fragment stream; backends without streaming
// support return ErrStreamingNotSupported and callers fall back to Complete.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Chunk, error)
	CompleteStreaming(ctx context.Context, req CompletionRequest) (Stream, error)
}
