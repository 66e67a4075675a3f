package testutil

import (
	"context"
	"strings"
	"sync"
)

// LLMRule maps a prompt substring to a canned completion. Rules are checked
// in registration order; the first match wins.
type LLMRule struct {
	Contains string
	Reply    string
	Err      error
}

// MockLLM is a scripted completion client for engine and category tests.
// It records every call so tests can assert on the prompts that were sent.
type MockLLM struct {
	mu    sync.Mutex
	rules []LLMRule
	// Default is returned when no rule matches. Empty default with no match
	// returns the prompt echoed back, which keeps rewrite tests readable.
	Default string
	// Err, when set, fails every call regardless of rules.
	Err error

	calls []LLMCall
}

// LLMCall is one recorded Complete invocation.
type LLMCall struct {
	System string
	Prompt string
}

// On registers a rule: when the prompt (or system prompt) contains the given
// substring, reply with the given text.
func (m *MockLLM) On(contains, reply string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, LLMRule{Contains: contains, Reply: reply})
	return m
}

// OnErr registers a rule that fails with err when matched.
func (m *MockLLM) OnErr(contains string, err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, LLMRule{Contains: contains, Err: err})
	return m
}

// Complete implements the completion interface consumed by the engine.
func (m *MockLLM) Complete(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, LLMCall{System: system, Prompt: prompt})

	if m.Err != nil {
		return "", m.Err
	}
	for _, r := range m.rules {
		if strings.Contains(prompt, r.Contains) || strings.Contains(system, r.Contains) {
			if r.Err != nil {
				return "", r.Err
			}
			return r.Reply, nil
		}
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return prompt, nil
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LLMCall, len(m.calls))
	copy(out, m.calls)
	return out
}
