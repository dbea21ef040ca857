// Package aitest provides a scripted ai.Client for tests.
package aitest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/arashthr/shelfmark/internal/ai"
)

// Fake answers Generate calls with Texts and GenerateStructured calls with
// Objects, in order. When a queue is exhausted the last entry is repeated.
// Err, when set, is returned from every call.
type Fake struct {
	mu      sync.Mutex
	Texts   []string
	Objects []string
	Err     error

	Prompts []string
}

func (f *Fake) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	return next(&f.Texts), nil
}

func (f *Fake) GenerateStructured(ctx context.Context, prompt string, schema ai.Schema, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return f.Err
	}
	if err := json.Unmarshal([]byte(next(&f.Objects)), out); err != nil {
		return ai.ErrInvalidResponse
	}
	return nil
}

// Calls reports how many prompts were sent.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

func next(queue *[]string) string {
	if len(*queue) == 0 {
		return ""
	}
	value := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return value
}
