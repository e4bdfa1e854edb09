package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

// session builds an interface with two channels and two routed inputs
type session struct {
	user   *entities.User
	iface  *entities.AudioInterface
	freq   *entities.Frequency
	ch1    *entities.Channel
	ch2    *entities.Channel
	in1    *entities.Input
	in2    *entities.Input
	device *entities.Device
	source *entities.Source
	loose  *entities.Input // not routed to the interface
}

func newSession(f *fixture) *session {
	f.t.Helper()
	s := &session{}
	s.user = f.user("foh@example.com", entities.RoleOperator)
	s.freq = f.frequency(48)
	s.iface = f.iface("umc", &s.freq.ID)
	s.source = f.source("Vocals")
	s.device = f.device("SM58", nil)
	s.ch1 = f.channel("CH1", s.iface.ID)
	s.ch2 = f.channel("CH2", s.iface.ID)
	s.in1 = f.input("IN1", &s.ch1.ID, &s.device.ID)
	s.in2 = f.input("IN2", &s.ch2.ID, nil)
	s.loose = f.input("SPARE", nil, &s.device.ID)

	var err error
	s.ch1, err = f.channels.Update(f.ctx, s.ch1.ID, ChannelPatch{
		Volume:   Ptr(0.8),
		Mute:     Ptr(true),
		SourceID: SetRef(s.source.ID),
	})
	require.NoError(f.t, err)
	return s
}

func TestSaveThenReloadKeepsIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)

	saved, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID, Name: "Soundcheck"})
	require.NoError(t, err)

	got, err := f.configs.GetByID(f.ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	assert.Equal(t, "Soundcheck", got.Name)
	assert.Equal(t, s.user.ID, got.UserID)
	assert.Equal(t, s.iface.ID, got.InterfaceID)
	require.NotNil(t, got.FrequencyID)
	assert.Equal(t, s.freq.ID, *got.FrequencyID)

	require.Len(t, got.Channels, 2)
	assert.Equal(t, s.ch1.ID, got.Channels[0].ChannelID)
	assert.Equal(t, s.ch2.ID, got.Channels[1].ChannelID)
	assert.InDelta(t, 0.8, got.Channels[0].Volume, 0.0001)
	assert.True(t, got.Channels[0].Mute)
	require.NotNil(t, got.Channels[0].SourceID)
	assert.Equal(t, s.source.ID, *got.Channels[0].SourceID)

	require.Len(t, got.Inputs, 2)
	assert.Equal(t, s.in1.ID, got.Inputs[0].InputID)
	require.NotNil(t, got.Inputs[0].DeviceID)
	assert.Equal(t, s.device.ID, *got.Inputs[0].DeviceID)
	assert.Equal(t, s.in2.ID, got.Inputs[1].InputID)
	assert.Nil(t, got.Inputs[1].DeviceID)
}

func TestSaveDefaultName(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)

	repo := f.configs.(*configurationRepository)
	repo.now = func() time.Time { return time.Date(2026, 3, 14, 20, 15, 0, 0, time.UTC) }

	saved, err := repo.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID})
	require.NoError(t, err)
	assert.Equal(t, "Session 2026-03-14 20:15:00", saved.Name)
}

func TestSaveRejectsMissingReferences(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)

	_, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: 999, InterfaceID: s.iface.ID})
	require.ErrorIs(t, err, ErrReference)

	_, err = f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: 999})
	require.ErrorIs(t, err, ErrReference)
	assert.True(t, errors.IsCategory(err, errors.CategoryReferential))

	_, err = f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID})
	require.ErrorIs(t, err, ErrInvalidInput)

	n, err := f.configs.Count(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLatest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)
	other := f.user("mon@example.com", entities.RoleOperator)

	repo := f.configs.(*configurationRepository)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	_, err := f.configs.Latest(f.ctx, 0)
	require.ErrorIs(t, err, ErrConfigurationNotFound)

	first, err := repo.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID, Name: "first"})
	require.NoError(t, err)
	second, err := repo.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID, Name: "second"})
	require.NoError(t, err)
	theirs, err := repo.Save(f.ctx, SnapshotRequest{UserID: other.ID, InterfaceID: s.iface.ID, Name: "theirs"})
	require.NoError(t, err)

	latest, err := f.configs.Latest(f.ctx, s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Len(t, latest.Channels, 2)

	latest, err = f.configs.Latest(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, theirs.ID, latest.ID)

	mine, err := f.configs.ListByUser(f.ctx, s.user.ID, ListOptions{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	n, err := f.configs.CountByUser(f.ctx, s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	byIface, err := f.configs.ListByInterface(f.ctx, s.iface.ID, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, byIface, 1)
	assert.Equal(t, theirs.ID, byIface[0].ID)
}

func TestApplyRestoresState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)

	saved, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID})
	require.NoError(t, err)

	// change everything the snapshot captured
	_, err = f.channels.Update(f.ctx, s.ch1.ID, ChannelPatch{Volume: Ptr(0.1), Mute: Ptr(false), SourceID: ClearRef()})
	require.NoError(t, err)
	_, err = f.inputs.Update(f.ctx, s.in1.ID, InputPatch{DeviceID: ClearRef()})
	require.NoError(t, err)
	f96 := f.frequency(96)
	_, err = f.interfaces.Update(f.ctx, s.iface.ID, AudioInterfacePatch{FrequencyID: SetRef(f96.ID)})
	require.NoError(t, err)

	res, err := f.configs.Apply(f.ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Channels)
	assert.Equal(t, 2, res.Inputs)
	assert.True(t, res.Frequency)

	ch, err := f.channels.GetByID(f.ctx, s.ch1.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, ch.Volume, 0.0001)
	assert.True(t, ch.Mute)
	require.NotNil(t, ch.SourceID)
	assert.Equal(t, s.source.ID, *ch.SourceID)

	in, err := f.inputs.GetByID(f.ctx, s.in1.ID)
	require.NoError(t, err)
	require.NotNil(t, in.DeviceID)
	assert.Equal(t, s.device.ID, *in.DeviceID)

	iface, err := f.interfaces.GetByID(f.ctx, s.iface.ID)
	require.NoError(t, err)
	require.NotNil(t, iface.FrequencyID)
	assert.Equal(t, s.freq.ID, *iface.FrequencyID)

	spare, err := f.inputs.GetByID(f.ctx, s.loose.ID)
	require.NoError(t, err)
	assert.Equal(t, s.loose.Version, spare.Version, "unrouted inputs are not touched")

	_, err = f.configs.Apply(f.ctx, 12345)
	require.ErrorIs(t, err, ErrConfigurationNotFound)
}

func TestSetChannelSetting(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)

	saved, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID})
	require.NoError(t, err)
	before := saved.Channels[1]

	got, err := f.configs.SetChannelSetting(f.ctx, saved.ID, s.ch2.ID, ChannelSettingPatch{
		Solo:    Ptr(true),
		Version: Ptr(before.Version),
	})
	require.NoError(t, err)
	assert.True(t, got.Solo)
	assert.InDelta(t, before.Volume, got.Volume, 0.0001)
	assert.Equal(t, before.Version+1, got.Version)

	// the live channel is unchanged until Apply
	ch, err := f.channels.GetByID(f.ctx, s.ch2.ID)
	require.NoError(t, err)
	assert.False(t, ch.Solo)

	_, err = f.configs.SetChannelSetting(f.ctx, saved.ID, s.ch2.ID, ChannelSettingPatch{
		Mute:    Ptr(true),
		Version: Ptr(before.Version),
	})
	require.ErrorIs(t, err, ErrStaleVersion)

	_, err = f.configs.SetChannelSetting(f.ctx, saved.ID, s.ch2.ID, ChannelSettingPatch{Volume: Ptr(2.0)})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.configs.SetChannelSetting(f.ctx, saved.ID, 9999, ChannelSettingPatch{Mute: Ptr(true)})
	require.ErrorIs(t, err, ErrChannelSettingNotFound)
}

func TestConfigurationCreateValidatesChildren(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)
	foreign := f.iface("other", nil)
	foreignCh := f.channel("X1", foreign.ID)

	_, err := f.configs.Create(f.ctx, &entities.Configuration{
		UserID:      s.user.ID,
		InterfaceID: s.iface.ID,
		Channels:    []entities.ChannelSetting{{ChannelID: foreignCh.ID, Volume: 0.5}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.configs.Create(f.ctx, &entities.Configuration{
		UserID:      s.user.ID,
		InterfaceID: s.iface.ID,
		Channels:    []entities.ChannelSetting{{ChannelID: 4242}},
	})
	require.ErrorIs(t, err, ErrReference)

	created, err := f.configs.Create(f.ctx, &entities.Configuration{
		Name:        "Imported",
		UserID:      s.user.ID,
		InterfaceID: s.iface.ID,
		Channels:    []entities.ChannelSetting{{ChannelID: s.ch2.ID, Volume: 0.25, Link: true}},
		Inputs:      []entities.InputConnection{{InputID: s.in2.ID, DeviceID: &s.device.ID}},
	})
	require.NoError(t, err)
	require.Len(t, created.Channels, 1)
	assert.True(t, created.Channels[0].Link)
	require.Len(t, created.Inputs, 1)
	assert.Equal(t, s.in2.ID, created.Inputs[0].InputID)
}

func TestConfigurationUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)
	saved, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID, Name: "old"})
	require.NoError(t, err)

	got, err := f.configs.Update(f.ctx, saved.ID, ConfigurationPatch{Name: Ptr("Matinee"), Version: Ptr(saved.Version)})
	require.NoError(t, err)
	assert.Equal(t, "Matinee", got.Name)
	assert.Equal(t, saved.FrequencyID, got.FrequencyID)
	assert.Len(t, got.Channels, 2)

	_, err = f.configs.Update(f.ctx, saved.ID, ConfigurationPatch{Name: Ptr("Evening"), Version: Ptr(saved.Version)})
	require.ErrorIs(t, err, ErrStaleVersion)

	got, err = f.configs.Update(f.ctx, saved.ID, ConfigurationPatch{FrequencyID: ClearRef()})
	require.NoError(t, err)
	assert.Nil(t, got.FrequencyID)
}

func TestDeleteInputDropsConnection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newSession(f)
	saved, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: s.user.ID, InterfaceID: s.iface.ID})
	require.NoError(t, err)

	require.NoError(t, f.inputs.Delete(f.ctx, s.in1.ID))

	got, err := f.configs.GetByID(f.ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, got.Inputs, 1)
	assert.Equal(t, s.in2.ID, got.Inputs[0].InputID)
}
