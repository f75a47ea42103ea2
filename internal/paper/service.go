package paper

import "sync"

// Service manages one paper-trading account per opaque user identifier.
type Service struct {
	mu             sync.Mutex
	accounts       map[string]*Account
	initialBalance float64
	terminalHook   func(userID string, position Position)
}

// NewService constructs an empty account registry. Accounts created through
// it are seeded with initialBalance and inherit the terminal-position hook.
func NewService(initialBalance float64) *Service {
	if initialBalance <= 0 {
		initialBalance = DefaultInitialBalance
	}
	return &Service{
		accounts:       make(map[string]*Account),
		initialBalance: initialBalance,
	}
}

// SetTerminalHook propagates the hook to existing and future accounts.
func (s *Service) SetTerminalHook(hook func(userID string, position Position)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminalHook = hook
	for _, account := range s.accounts {
		s.bindHook(account)
	}
}

func (s *Service) bindHook(account *Account) {
	hook := s.terminalHook
	id := account.UserID()
	account.SetTerminalHook(func(position Position) { hook(id, position) })
}

// Account returns the user's account if one exists.
func (s *Service) Account(userID string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	return account, ok
}

// GetOrCreate returns the user's account, creating it on first use.
func (s *Service) GetOrCreate(userID string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		account = NewAccount(userID, s.initialBalance)
		if s.terminalHook != nil {
			s.bindHook(account)
		}
		s.accounts[userID] = account
	}
	return account
}
