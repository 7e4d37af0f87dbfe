// Package api is the UI-facing surface of the controller. Every
// operation returns a uniform envelope so the frontend can treat all
// responses the same way: either data or an error string, never both.
package api

import (
	"tokfleet/internal/bulkops"
	"tokfleet/pkg/device"
	"tokfleet/pkg/engine"
	"tokfleet/pkg/instance"
	"tokfleet/pkg/logger"
	"tokfleet/pkg/store"
)

// Envelope is the uniform response contract.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

func fail(err error) Envelope {
	return Envelope{Success: false, Error: err.Error()}
}

// BulkOutcome is one account's result inside a bulk response.
type BulkOutcome struct {
	AccountID string `json:"account_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func bulkOutcomes(results []bulkops.Result) []BulkOutcome {
	out := make([]BulkOutcome, 0, len(results))
	for _, result := range results {
		outcome := BulkOutcome{AccountID: result.AccountID, Success: result.Err == nil}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
		out = append(out, outcome)
	}
	return out
}

// Service exposes instance lifecycle and automation operations to the
// UI layer.
type Service struct {
	store  store.Store
	pool   *instance.Pool
	engine *engine.Engine
	log    logger.Logger
}

// NewService creates the UI-facing service.
func NewService(st store.Store, pool *instance.Pool, eng *engine.Engine, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Service{store: st, pool: pool, engine: eng, log: log}
}

// CreateInstance opens (or focuses) the account's instance.
func (s *Service) CreateInstance(accountID string) Envelope {
	account, err := s.store.GetAccount(accountID)
	if err != nil {
		return fail(err)
	}
	record, err := s.pool.Create(account)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]interface{}{
		"account_id": record.AccountID,
		"username":   record.Username,
		"device":     record.Profile.Name,
	})
}

// CloseInstance stops any running automation and closes the instance.
// Absent instances are a successful no-op.
func (s *Service) CloseInstance(accountID string) Envelope {
	if err := s.engine.StopAutomation(accountID); err != nil {
		return fail(err)
	}
	s.pool.Close(accountID)
	return ok(nil)
}

// CloseAllInstances stops everything and clears the pool.
func (s *Service) CloseAllInstances() Envelope {
	s.engine.StopScrollAll()
	s.pool.CloseAll()
	return ok(nil)
}

// StartInstances opens instances for up to count inactive accounts.
func (s *Service) StartInstances(count int) Envelope {
	accounts, err := s.store.ListAccounts()
	if err != nil {
		return fail(err)
	}
	results := s.pool.StartMultiple(accounts, count)

	out := make([]BulkOutcome, 0, len(results))
	for _, result := range results {
		outcome := BulkOutcome{AccountID: result.AccountID, Success: result.Err == nil}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
		out = append(out, outcome)
	}
	return ok(out)
}

// ArrangeInstances repositions every live instance into the packed grid.
func (s *Service) ArrangeInstances() Envelope {
	s.pool.RearrangeAll()
	return ok(nil)
}

// ListActiveInstances returns a snapshot of every live instance.
func (s *Service) ListActiveInstances() Envelope {
	return ok(s.pool.ListActive())
}

// FocusInstance raises the account's instance window.
func (s *Service) FocusInstance(accountID string) Envelope {
	s.pool.Focus(accountID)
	return ok(nil)
}

// GetPoolSettings returns the current pool-wide settings.
func (s *Service) GetPoolSettings() Envelope {
	return ok(s.pool.Settings())
}

// UpdatePoolSettings merges new pool-wide settings.
func (s *Service) UpdatePoolSettings(settings instance.Settings) Envelope {
	s.pool.UpdateSettings(settings)
	return ok(s.pool.Settings())
}

// GetDeviceCatalog returns every known device profile.
func (s *Service) GetDeviceCatalog() Envelope {
	return ok(device.All())
}

// GetPresets returns the automation preset catalog.
func (s *Service) GetPresets() Envelope {
	return ok(engine.Presets())
}

// ApplyPreset applies a preset to one account.
func (s *Service) ApplyPreset(accountID, presetName string) Envelope {
	autoStarted, err := s.engine.ApplyPreset(accountID, presetName)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]interface{}{"auto_started": autoStarted})
}

// StartAutomation starts the automation lifecycle for one account,
// opening its instance if needed.
func (s *Service) StartAutomation(accountID string) Envelope {
	if err := s.engine.StartAutomation(accountID); err != nil {
		return fail(err)
	}
	return ok(nil)
}

// StopAutomation stops the automation lifecycle for one account.
func (s *Service) StopAutomation(accountID string) Envelope {
	if err := s.engine.StopAutomation(accountID); err != nil {
		return fail(err)
	}
	return ok(nil)
}

// GetAutomationSettings returns the account's merged settings.
func (s *Service) GetAutomationSettings(accountID string) Envelope {
	settings, err := s.engine.GetSettings(accountID)
	if err != nil {
		return fail(err)
	}
	return ok(settings)
}

// UpdateAutomationSettings applies a partial settings update.
func (s *Service) UpdateAutomationSettings(accountID string, patch store.SettingsPatch) Envelope {
	if err := s.engine.UpdateSettings(accountID, patch); err != nil {
		return fail(err)
	}
	settings, err := s.engine.GetSettings(accountID)
	if err != nil {
		return fail(err)
	}
	return ok(settings)
}

// SetCommentTemplates replaces the account's comment templates.
func (s *Service) SetCommentTemplates(accountID string, templates []string) Envelope {
	if err := s.engine.SetCommentTemplates(accountID, templates); err != nil {
		return fail(err)
	}
	return ok(nil)
}

// ActiveAutomations lists accounts with a running automation lifecycle.
func (s *Service) ActiveAutomations() Envelope {
	return ok(s.engine.ActiveAutomations())
}

// BulkApplyPreset applies a preset to many accounts.
func (s *Service) BulkApplyPreset(accountIDs []string, presetName string) Envelope {
	return ok(bulkOutcomes(s.engine.BulkApplyPreset(accountIDs, presetName)))
}

// BulkStart starts automation for many accounts.
func (s *Service) BulkStart(accountIDs []string) Envelope {
	return ok(bulkOutcomes(s.engine.BulkStart(accountIDs)))
}

// BulkStartStaggered starts automation for many accounts with a random
// delay between consecutive starts. Blocks until the last start.
func (s *Service) BulkStartStaggered(accountIDs []string) Envelope {
	return ok(bulkOutcomes(s.engine.BulkStartStaggered(accountIDs)))
}

// BulkStop stops automation for many accounts.
func (s *Service) BulkStop(accountIDs []string) Envelope {
	return ok(bulkOutcomes(s.engine.BulkStop(accountIDs)))
}

// AutoScrollAll starts the scroll loop on every live instance.
func (s *Service) AutoScrollAll(speedMs int) Envelope {
	count := s.engine.AutoScrollAll(speedMs)
	return ok(map[string]interface{}{"count": count})
}

// StopScrollAll stops the scroll loop on every live instance.
func (s *Service) StopScrollAll() Envelope {
	count := s.engine.StopScrollAll()
	return ok(map[string]interface{}{"count": count})
}
