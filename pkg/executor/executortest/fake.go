// Package executortest provides an in-memory Runner for backend and tool
// tests. It records every call and serves canned results, so tests never
// spawn real package-manager processes.
package executortest

import (
	"context"
	"sync"
	"time"

	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
)

// Call records one Run invocation.
type Call struct {
	Name string
	Args []string
}

// Fake is a scriptable executor.Runner.
type Fake struct {
	mu sync.Mutex

	// Paths maps executable names to resolved paths for LookPath. Names not
	// present resolve as missing.
	Paths map[string]string

	// Handler produces the result for each Run call.
	Handler func(name string, args []string) (*executor.CommandResult, error)

	calls []Call
}

// WithPath returns a Fake that resolves name and answers every Run with res.
func WithPath(name string, res *executor.CommandResult) *Fake {
	return &Fake{
		Paths: map[string]string{name: "/usr/bin/" + name},
		Handler: func(string, []string) (*executor.CommandResult, error) {
			return res, nil
		},
	}
}

func (f *Fake) LookPath(name string) (string, error) {
	if path, ok := f.Paths[name]; ok {
		return path, nil
	}
	return "", executor.ErrExecutableNotFound
}

func (f *Fake) Run(_ context.Context, name string, args []string, _ time.Duration) (*executor.CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.Handler != nil {
		return f.Handler(name, args)
	}
	return &executor.CommandResult{}, nil
}

// Calls returns a copy of the recorded Run invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// LastCall returns the most recent Run invocation, or nil.
func (f *Fake) LastCall() *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	c := f.calls[len(f.calls)-1]
	return &c
}
