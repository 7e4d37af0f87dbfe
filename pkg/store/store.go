// Package store defines the point-access contract the controller needs
// from the persistent data store. The store itself is an external
// collaborator; this package owns only the record shapes and a
// thread-safe in-memory implementation used by tests and the demo CLI.
package store

import "time"

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

const (
	StatusInactive AccountStatus = "inactive"
	StatusActive   AccountStatus = "active"
)

// Account is the identity and aggregate-stat record for one managed
// account. The core never mutates it structurally; it only flips Status,
// touches LastLogin and reads stats.
type Account struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Nickname  string        `json:"nickname"`
	Status    AccountStatus `json:"status"`
	DeviceKey string        `json:"device_key"`
	Followers int           `json:"followers"`
	Following int           `json:"following"`
	Posts     int           `json:"posts"`
	Views     int           `json:"views"`
	LastLogin time.Time     `json:"last_login"`
	CreatedAt time.Time     `json:"created_at"`
}

// AutomationSettings is the fully-specified per-account automation
// configuration. Missing fields never exist at this level; defaults are
// merged in by DefaultSettings before a record is first written.
type AutomationSettings struct {
	AutoScroll         bool     `json:"auto_scroll"`
	ScrollSpeed        int      `json:"scroll_speed"` // base tick period in ms
	AutoLike           bool     `json:"auto_like"`
	LikeProbability    float64  `json:"like_probability"`
	AutoFollow         bool     `json:"auto_follow"`
	FollowDailyLimit   int      `json:"follow_daily_limit"`
	AutoComment        bool     `json:"auto_comment"`
	CommentProbability float64  `json:"comment_probability"`
	CommentTemplates   []string `json:"comment_templates"`
	Preset             string   `json:"preset"`
}

// SettingsPatch is a partial update to AutomationSettings. Nil fields
// leave the stored value untouched.
type SettingsPatch struct {
	AutoScroll         *bool
	ScrollSpeed        *int
	AutoLike           *bool
	LikeProbability    *float64
	AutoFollow         *bool
	FollowDailyLimit   *int
	AutoComment        *bool
	CommentProbability *float64
	CommentTemplates   *[]string
	Preset             *string
}

// Apply merges the patch into a settings record.
func (p SettingsPatch) Apply(s *AutomationSettings) {
	if p.AutoScroll != nil {
		s.AutoScroll = *p.AutoScroll
	}
	if p.ScrollSpeed != nil {
		s.ScrollSpeed = *p.ScrollSpeed
	}
	if p.AutoLike != nil {
		s.AutoLike = *p.AutoLike
	}
	if p.LikeProbability != nil {
		s.LikeProbability = *p.LikeProbability
	}
	if p.AutoFollow != nil {
		s.AutoFollow = *p.AutoFollow
	}
	if p.FollowDailyLimit != nil {
		s.FollowDailyLimit = *p.FollowDailyLimit
	}
	if p.AutoComment != nil {
		s.AutoComment = *p.AutoComment
	}
	if p.CommentProbability != nil {
		s.CommentProbability = *p.CommentProbability
	}
	if p.CommentTemplates != nil {
		s.CommentTemplates = append([]string(nil), (*p.CommentTemplates)...)
	}
	if p.Preset != nil {
		s.Preset = *p.Preset
	}
}

// FullPatch converts a complete settings record into a patch that
// replaces every field.
func FullPatch(s AutomationSettings) SettingsPatch {
	return SettingsPatch{
		AutoScroll:         &s.AutoScroll,
		ScrollSpeed:        &s.ScrollSpeed,
		AutoLike:           &s.AutoLike,
		LikeProbability:    &s.LikeProbability,
		AutoFollow:         &s.AutoFollow,
		FollowDailyLimit:   &s.FollowDailyLimit,
		AutoComment:        &s.AutoComment,
		CommentProbability: &s.CommentProbability,
		CommentTemplates:   &s.CommentTemplates,
		Preset:             &s.Preset,
	}
}

// DefaultSettings returns the settings a fresh account starts with.
func DefaultSettings() AutomationSettings {
	return AutomationSettings{
		AutoScroll:         false,
		ScrollSpeed:        100,
		AutoLike:           false,
		LikeProbability:    0.3,
		AutoFollow:         false,
		FollowDailyLimit:   100,
		AutoComment:        false,
		CommentProbability: 0.2,
		CommentTemplates:   nil,
		Preset:             "organic",
	}
}

// ActivityEntry is one appended activity-log record.
type ActivityEntry struct {
	ID        string                 `json:"id"`
	AccountID string                 `json:"account_id"`
	EventType string                 `json:"event_type"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Store is the record-access interface the controller consumes. All
// operations are individually atomic point reads/writes; no
// cross-account transactions exist or are needed.
type Store interface {
	GetAccount(id string) (Account, error)
	ListAccounts() ([]Account, error)
	SetAccountStatus(id string, status AccountStatus) error
	SetLastLogin(id string) error

	GetDeviceProfileKey(id string) (string, error)
	SetDeviceProfileKey(id, key string) error

	// GetAutomationSettings returns nil when no record exists yet.
	GetAutomationSettings(id string) (*AutomationSettings, error)
	UpsertAutomationSettings(id string, patch SettingsPatch) error

	AppendActivityLog(id, eventType string, details map[string]interface{}) error
}
