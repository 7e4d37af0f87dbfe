package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "tokfleet/pkg/errors"
)

func TestCreateAccountSeedsDefaultSettings(t *testing.T) {
	st := NewMemoryStore()

	account, err := st.CreateAccount("alice", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)
	assert.Equal(t, StatusInactive, account.Status)

	settings, err := st.GetAutomationSettings(account.ID)
	require.NoError(t, err)
	require.NotNil(t, settings, "settings exist from the moment the account does")
	assert.Equal(t, DefaultSettings(), *settings)
}

func TestGetAccountNotFound(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.GetAccount("missing")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAccountNotFound, errs.GetType(err))
}

func TestSettingsPatchMerges(t *testing.T) {
	st := NewMemoryStore()
	account, err := st.CreateAccount("bob", "")
	require.NoError(t, err)

	speed := 250
	autoLike := true
	err = st.UpsertAutomationSettings(account.ID, SettingsPatch{
		ScrollSpeed: &speed,
		AutoLike:    &autoLike,
	})
	require.NoError(t, err)

	settings, err := st.GetAutomationSettings(account.ID)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, 250, settings.ScrollSpeed)
	assert.True(t, settings.AutoLike)
	// Untouched fields keep their previous values.
	assert.Equal(t, DefaultSettings().LikeProbability, settings.LikeProbability)
	assert.Equal(t, DefaultSettings().Preset, settings.Preset)
}

func TestFullPatchReplacesEverything(t *testing.T) {
	original := DefaultSettings()
	replacement := AutomationSettings{
		AutoScroll:         true,
		ScrollSpeed:        77,
		AutoLike:           true,
		LikeProbability:    0.42,
		AutoFollow:         true,
		FollowDailyLimit:   9,
		AutoComment:        true,
		CommentProbability: 0.11,
		CommentTemplates:   []string{"hi"},
		Preset:             "aggressive",
	}

	FullPatch(replacement).Apply(&original)
	assert.Equal(t, replacement, original)
}

func TestDeleteAccountCascades(t *testing.T) {
	st := NewMemoryStore()
	account, err := st.CreateAccount("carol", "")
	require.NoError(t, err)
	require.NoError(t, st.AppendActivityLog(account.ID, "instance_opened", nil))

	require.NoError(t, st.DeleteAccount(account.ID))

	settings, err := st.GetAutomationSettings(account.ID)
	require.NoError(t, err)
	assert.Nil(t, settings)
	assert.Empty(t, st.ActivityLog(account.ID))

	err = st.DeleteAccount(account.ID)
	assert.Equal(t, errs.ErrorTypeAccountNotFound, errs.GetType(err))
}

func TestDeviceProfileKeyRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	account, err := st.CreateAccount("dave", "")
	require.NoError(t, err)

	key, err := st.GetDeviceProfileKey(account.ID)
	require.NoError(t, err)
	assert.Empty(t, key, "no profile assigned yet")

	require.NoError(t, st.SetDeviceProfileKey(account.ID, "pixel6"))
	key, err = st.GetDeviceProfileKey(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "pixel6", key)
}

func TestStatusAndLastLogin(t *testing.T) {
	st := NewMemoryStore()
	account, err := st.CreateAccount("erin", "")
	require.NoError(t, err)
	require.True(t, account.LastLogin.IsZero())

	require.NoError(t, st.SetAccountStatus(account.ID, StatusActive))
	require.NoError(t, st.SetLastLogin(account.ID))

	got, err := st.GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.False(t, got.LastLogin.IsZero())
}

func TestActivityLogOrder(t *testing.T) {
	st := NewMemoryStore()
	account, err := st.CreateAccount("frank", "")
	require.NoError(t, err)

	require.NoError(t, st.AppendActivityLog(account.ID, "instance_opened", map[string]interface{}{"device": "iPhone 13"}))
	require.NoError(t, st.AppendActivityLog(account.ID, "automation_started", nil))
	require.NoError(t, st.AppendActivityLog(account.ID, "instance_closed", nil))

	entries := st.ActivityLog(account.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "instance_opened", entries[0].EventType)
	assert.Equal(t, "automation_started", entries[1].EventType)
	assert.Equal(t, "instance_closed", entries[2].EventType)
	assert.Equal(t, "iPhone 13", entries[0].Details["device"])
}
