// Package providertest provides a scripted Provider for tests.
package providertest

import (
	"context"
	"iter"
	"sync"

	"github.com/upb/chat-relay/services/providers"
)

// Fake is a scripted providers.Provider.
//
// Complete delegates to CompleteFunc, or returns Reply when it is nil.
// Stream yields Fragments in order and then StreamErr, if set, wrapped as a
// *providers.ProviderError.
type Fake struct {
	ProviderName string
	ModelName    string

	Reply        string
	CompleteFunc func(ctx context.Context, message string) (string, error)

	Fragments []string
	StreamErr error

	mu          sync.Mutex
	calls       int
	pulled      int
	stopped     bool
	lastMessage string
}

// New returns a Fake named "fake".
func New() *Fake {
	return &Fake{ProviderName: "fake", ModelName: "fake-model"}
}

func (f *Fake) Name() string  { return f.ProviderName }
func (f *Fake) Model() string { return f.ModelName }

func (f *Fake) Complete(ctx context.Context, message string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastMessage = message
	fn := f.CompleteFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, message)
	}
	return f.Reply, nil
}

func (f *Fake) Stream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.mu.Lock()
		f.calls++
		f.lastMessage = message
		f.mu.Unlock()

		for _, fragment := range f.Fragments {
			if err := ctx.Err(); err != nil {
				yield("", providers.NewProviderError(f.ProviderName, err))
				return
			}
			f.mu.Lock()
			f.pulled++
			f.mu.Unlock()
			if !yield(fragment, nil) {
				f.mu.Lock()
				f.stopped = true
				f.mu.Unlock()
				return
			}
		}
		if f.StreamErr != nil {
			yield("", providers.NewProviderError(f.ProviderName, f.StreamErr))
		}
	}
}

// Calls reports how many Complete or Stream calls were made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Pulled reports how many fragments the consumer pulled.
func (f *Fake) Pulled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulled
}

// Stopped reports whether the consumer stopped a stream early.
func (f *Fake) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// LastMessage returns the message of the most recent call.
func (f *Fake) LastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessage
}

var _ providers.Provider = (*Fake)(nil)
