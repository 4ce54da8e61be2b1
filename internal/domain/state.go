package domain

// State is the full persisted unit: every account in creation order, the
// credential attached to each, and the selection pointer. The store loads
// and saves it as one atomic value so readers never observe a half-applied
// mutation.
type State struct {
	Accounts    []Account
	Credentials map[AccountID]Credential
	SelectedID  AccountID
}

func NewState() State {
	return State{Credentials: map[AccountID]Credential{}}
}

func (s *State) Account(id AccountID) (Account, bool) {
	for _, account := range s.Accounts {
		if account.ID == id {
			return account, true
		}
	}
	return Account{}, false
}

// UpsertAccount replaces the entry with the same ID or appends a new one,
// preserving creation order.
func (s *State) UpsertAccount(account Account) {
	if s.Credentials == nil {
		s.Credentials = map[AccountID]Credential{}
	}
	for i := range s.Accounts {
		if s.Accounts[i].ID == account.ID {
			s.Accounts[i] = account
			return
		}
	}
	s.Accounts = append(s.Accounts, account)
}

// RemoveAccount deletes the account and its credential in one step and
// reports whether the account existed.
func (s *State) RemoveAccount(id AccountID) bool {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			s.Accounts = append(s.Accounts[:i], s.Accounts[i+1:]...)
			delete(s.Credentials, id)
			return true
		}
	}
	return false
}

// EnsureSelection re-establishes the selection invariant: the pointer must
// reference an existing account whenever any account exists, and must be
// empty otherwise. A dangling or missing selection falls back to the first
// account in creation order.
func (s *State) EnsureSelection() {
	if len(s.Accounts) == 0 {
		s.SelectedID = ""
		return
	}
	if _, ok := s.Account(s.SelectedID); !ok {
		s.SelectedID = s.Accounts[0].ID
	}
}
