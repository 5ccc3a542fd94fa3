package service

import "sync"

// AddressLocker serializes mutating operations per key. The vault balance
// is a single shared counter per owner, so every service that touches one
// vault must take its turn on the same lock: the process wires exactly one
// AddressLocker into the vault, agent, and savings services.
type AddressLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAddressLocker() *AddressLocker {
	return &AddressLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *AddressLocker) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
