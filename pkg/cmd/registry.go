package cmd

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// DefaultPrefix marks a message as a command.
const DefaultPrefix = "!"

// Registry maps command names to commands and recognizes command messages.
type Registry struct {
	prefix string

	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty registry. An empty prefix means DefaultPrefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{prefix: prefix, commands: make(map[string]Command)}
}

// Register adds c, replacing any command with the same name.
func (r *Registry) Register(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.Name()] = c
}

// Get returns the command named exactly name, or nil.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// GetAll returns the registered commands sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Match resolves a message body to a registered command. Only the literal
// prefix+name, surrounding whitespace aside, is a match: case differences or
// trailing words leave the text to be treated as plain content.
func (r *Registry) Match(content string) (Command, *Invocation, bool) {
	name, ok := strings.CutPrefix(strings.TrimSpace(content), r.prefix)
	if !ok || name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
		return nil, nil, false
	}

	c := r.Get(name)
	if c == nil {
		return nil, nil, false
	}
	return c, &Invocation{Name: c.Name()}, true
}
