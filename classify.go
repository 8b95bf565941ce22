package scmd

import (
	"iter"
	"sync"
)

// Queue is one externally owned list of commands with the label reported
// when an item is found on it. Entries is only ranged over while the
// lock passed to Classify is held.
type Queue[T comparable] struct {
	Label   string
	Entries iter.Seq[T]
}

// Classify reports the label of the first queue holding item. Queues are
// searched in the order given, each in its own order, under a single
// acquisition of lock. Nothing other than identity comparison happens
// while the lock is held.
func Classify[T comparable](lock sync.Locker, item T, queues ...Queue[T]) (string, bool) {
	lock.Lock()
	defer lock.Unlock()

	for _, q := range queues {
		if q.Entries == nil {
			continue
		}
		for entry := range q.Entries {
			if entry == item {
				return q.Label, true
			}
		}
	}
	return "", false
}

// Classifier looks up the queue classification of the command being
// formatted. It owns whatever synchronization the lookup needs.
type Classifier interface {
	Classify() (label string, ok bool)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func() (string, bool)

func (f ClassifierFunc) Classify() (string, bool) { return f() }
