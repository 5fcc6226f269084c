package bridge

import "sync"

// PairingStatus is the linking state of the external account.
type PairingStatus int

const (
	// StatusPairing means no token has been issued yet.
	StatusPairing PairingStatus = iota
	// StatusUnpaired means a pairing token is waiting to be scanned.
	StatusUnpaired
	// StatusReady means the account is linked and receiving commands.
	StatusReady
)

// PairingState is a small state machine owned by the bridge. The admin
// stream queries it on connect to replay the current pairing status
// instead of relying on a free-floating "latest token" variable.
type PairingState struct {
	mu     sync.Mutex
	status PairingStatus
	token  string
}

// SetToken records a freshly issued pairing token, returning to the
// unpaired state even if the channel was previously ready.
func (p *PairingState) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusUnpaired
	p.token = token
}

// SetReady marks the channel linked and discards the token.
func (p *PairingState) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusReady
	p.token = ""
}

// State returns the current status and, for StatusUnpaired, the token.
func (p *PairingState) State() (PairingStatus, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.token
}
