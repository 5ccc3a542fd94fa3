package identity

import (
	"crypto/ecdsa"
	"fmt"
	"sync"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

// Keystore holds unsealed agent keys for the lifetime of the process and
// resolves signers for the ledger's ERC-20 backend. Keys enter only via
// Put after a Derive/Unseal; nothing here touches disk.
type Keystore struct {
	mu   sync.RWMutex
	keys map[string]*AgentKey
}

func NewKeystore() *Keystore {
	return &Keystore{keys: make(map[string]*AgentKey)}
}

func (s *Keystore) Put(key *AgentKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.Address()] = key
}

func (s *Keystore) Has(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[model.NormalizeAddress(address)]
	return ok
}

// PrivateKeyFor implements ledger.Keystore.
func (s *Keystore) PrivateKeyFor(address string) (*ecdsa.PrivateKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[model.NormalizeAddress(address)]
	if !ok {
		return nil, fmt.Errorf("no key loaded for %s", address)
	}
	return key.priv, nil
}
