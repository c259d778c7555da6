package oauth

import (
	"sync"
	"time"
)

// pendingAuthorization is one in-flight authorization-code exchange.
type pendingAuthorization struct {
	Code          string
	CodeChallenge string
	RedirectURI   string
	ClientID      string
	APIKey        string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (p *pendingAuthorization) expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// codeStore holds pending authorizations. Redemption is delete-on-get under
// the lock, so two concurrent exchanges of the same code yield exactly one
// success.
type codeStore struct {
	mu     sync.Mutex
	byCode map[string]*pendingAuthorization
}

func newCodeStore() *codeStore {
	return &codeStore{byCode: make(map[string]*pendingAuthorization)}
}

func (s *codeStore) Put(p *pendingAuthorization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(time.Now())
	s.byCode[p.Code] = p
}

// Redeem removes and returns the pending authorization for code. A code is
// single-use: the first caller wins, later callers observe absence.
func (s *codeStore) Redeem(code string) (*pendingAuthorization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byCode[code]
	if !ok {
		return nil, false
	}
	delete(s.byCode, code)
	return p, true
}

func (s *codeStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byCode)
}

// sweepLocked drops expired entries once the table grows past a bound, so
// abandoned flows cannot accumulate.
func (s *codeStore) sweepLocked(now time.Time) {
	if len(s.byCode) < 1000 {
		return
	}
	for code, p := range s.byCode {
		if p.expired(now) {
			delete(s.byCode, code)
		}
	}
}
