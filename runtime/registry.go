// Package runtime holds the in-process plumbing shared by connections: the group registry and its workers.
package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"sync"
)

type sinkSet map[contract.EventSink]struct{}

// Registry maps a group name to the sinks of the live connections subscribed to it.
// A Session group holds one sink per open connection of its owner.
type Registry struct {
	mu     sync.RWMutex
	groups map[domain.GroupName]sinkSet
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[domain.GroupName]sinkSet)}
}

// Subscribe adds the sink to the group, creating the group on the fly.
// Subscribing the same sink twice is a no-op.
func (r *Registry) Subscribe(group domain.GroupName, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		members = make(sinkSet)
		r.groups[group] = members
	}
	members[sink] = struct{}{}
}

// Unsubscribe removes the sink and returns how many sinks remain in the group.
// Empty groups are removed so the map does not grow with every past session.
func (r *Registry) Unsubscribe(group domain.GroupName, sink contract.EventSink) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		return 0
	}
	delete(members, sink)
	if len(members) == 0 {
		delete(r.groups, group)
		return 0
	}
	return len(members)
}

// SinksFor returns a snapshot of the group members, nil when the group is empty.
func (r *Registry) SinksFor(group domain.GroupName) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.groups[group]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for sink := range members {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) Count(group domain.GroupName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}

func (r *Registry) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
