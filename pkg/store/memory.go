package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	errs "tokfleet/pkg/errors"
)

// MemoryStore is a thread-safe in-memory Store. It backs tests and the
// demo command; production deployments plug in their own collaborator.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	settings map[string]AutomationSettings
	log      []ActivityEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		settings: make(map[string]AutomationSettings),
	}
}

// CreateAccount registers a new account and its default automation
// settings record. Settings are 1:1 with accounts and exist from the
// moment the account does.
func (m *MemoryStore) CreateAccount(username, nickname string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := Account{
		ID:        uuid.New().String(),
		Username:  username,
		Nickname:  nickname,
		Status:    StatusInactive,
		CreatedAt: time.Now(),
	}
	m.accounts[account.ID] = account
	m.settings[account.ID] = DefaultSettings()

	return account, nil
}

// DeleteAccount removes an account. Automation settings and activity
// log entries cascade with it.
func (m *MemoryStore) DeleteAccount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return errs.New(errs.ErrorTypeAccountNotFound, "account %s not found", id)
	}
	delete(m.accounts, id)
	delete(m.settings, id)

	kept := m.log[:0]
	for _, entry := range m.log {
		if entry.AccountID != id {
			kept = append(kept, entry)
		}
	}
	m.log = kept

	return nil
}

// GetAccount returns the account with the given id.
func (m *MemoryStore) GetAccount(id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return Account{}, errs.New(errs.ErrorTypeAccountNotFound, "account %s not found", id)
	}
	return account, nil
}

// ListAccounts returns every account ordered by creation time.
func (m *MemoryStore) ListAccounts() ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetAccountStatus flips the lifecycle status of an account.
func (m *MemoryStore) SetAccountStatus(id string, status AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return errs.New(errs.ErrorTypeAccountNotFound, "account %s not found", id)
	}
	account.Status = status
	m.accounts[id] = account
	return nil
}

// SetLastLogin stamps the account's last-login time.
func (m *MemoryStore) SetLastLogin(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return errs.New(errs.ErrorTypeAccountNotFound, "account %s not found", id)
	}
	account.LastLogin = time.Now()
	m.accounts[id] = account
	return nil
}

// GetDeviceProfileKey returns the stored device profile key, which may
// be empty when none has been assigned yet.
func (m *MemoryStore) GetDeviceProfileKey(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return "", errs.New(errs.ErrorTypeAccountNotFound, "account %s not found", id)
	}
	return account.DeviceKey, nil
}

// SetDeviceProfileKey persists the device profile association.
func (m *MemoryStore) SetDeviceProfileKey(id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return errs.New(errs.ErrorTypeAccountNotFound, "account %s not found", id)
	}
	account.DeviceKey = key
	m.accounts[id] = account
	return nil
}

// GetAutomationSettings returns the settings record for an account, or
// nil when none exists.
func (m *MemoryStore) GetAutomationSettings(id string) (*AutomationSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings, ok := m.settings[id]
	if !ok {
		return nil, nil
	}
	copied := settings
	copied.CommentTemplates = append([]string(nil), settings.CommentTemplates...)
	return &copied, nil
}

// UpsertAutomationSettings merges a patch into the stored record,
// creating it from defaults first if necessary.
func (m *MemoryStore) UpsertAutomationSettings(id string, patch SettingsPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, ok := m.settings[id]
	if !ok {
		settings = DefaultSettings()
	}
	patch.Apply(&settings)
	m.settings[id] = settings
	return nil
}

// AppendActivityLog appends one activity entry for an account.
func (m *MemoryStore) AppendActivityLog(id, eventType string, details map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = append(m.log, ActivityEntry{
		ID:        uuid.New().String(),
		AccountID: id,
		EventType: eventType,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

// ActivityLog returns the appended entries for an account in order.
func (m *MemoryStore) ActivityLog(id string) []ActivityEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ActivityEntry
	for _, entry := range m.log {
		if entry.AccountID == id {
			out = append(out, entry)
		}
	}
	return out
}
