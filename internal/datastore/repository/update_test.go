package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

func TestUpdatePreservesUnpatchedFields(t *testing.T) {
	t.Parallel()

	t.Run("device", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		tp := f.typ("Microphone")
		d, err := f.devices.Create(f.ctx, &entities.Device{Name: "SM57", Description: "dynamic", TypeID: &tp.ID})
		require.NoError(t, err)

		got, err := f.devices.Update(f.ctx, d.ID, DevicePatch{Name: Ptr("SM57 Beta")})
		require.NoError(t, err)
		assert.Equal(t, "SM57 Beta", got.Name)
		assert.Equal(t, "dynamic", got.Description)
		require.NotNil(t, got.TypeID)
		assert.Equal(t, tp.ID, *got.TypeID)
		assert.Equal(t, d.Version+1, got.Version)
		assert.Equal(t, d.CreatedAt, got.CreatedAt)
	})

	t.Run("audio interface", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		fr := f.frequency(48)
		a := f.iface("umc", &fr.ID)

		got, err := f.interfaces.Update(f.ctx, a.ID, AudioInterfacePatch{Price: Ptr(199.0)})
		require.NoError(t, err)
		assert.InDelta(t, 199.0, got.Price, 0.0001)
		assert.Equal(t, a.ShortName, got.ShortName)
		assert.Equal(t, a.ModelName, got.ModelName)
		assert.Equal(t, a.CommercialName, got.CommercialName)
		assert.Equal(t, a.FrequencyID, got.FrequencyID)
	})

	t.Run("channel", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		a := f.iface("umc", nil)
		s := f.source("Kick")
		c, err := f.channels.Create(f.ctx, &entities.Channel{Label: "CH1", Volume: 0.7, InterfaceID: a.ID, SourceID: &s.ID})
		require.NoError(t, err)

		got, err := f.channels.Update(f.ctx, c.ID, ChannelPatch{Mute: Ptr(true)})
		require.NoError(t, err)
		assert.True(t, got.Mute)
		assert.Equal(t, "CH1", got.Label)
		assert.InDelta(t, 0.7, got.Volume, 0.0001)
		assert.Equal(t, a.ID, got.InterfaceID)
		require.NotNil(t, got.SourceID)
		assert.Equal(t, s.ID, *got.SourceID)
	})

	t.Run("user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := f.user("op@example.com", entities.RoleOperator)

		got, err := f.users.Update(f.ctx, u.ID, UserPatch{Name: Ptr("Front of House")})
		require.NoError(t, err)
		assert.Equal(t, "Front of House", got.Name)
		assert.Equal(t, u.Email, got.Email)
		assert.Equal(t, u.Role, got.Role)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
	})
}

func TestUpdateEmptyPatchIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tp := f.typ("Line")

	got, err := f.types.Update(f.ctx, tp.ID, TypePatch{})
	require.NoError(t, err)
	assert.Equal(t, tp, got)
}

func TestUpdateStaleVersion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	d := f.device("MD421", nil)

	// first editor saves
	_, err := f.devices.Update(f.ctx, d.ID, DevicePatch{Name: Ptr("MD 421"), Version: Ptr(d.Version)})
	require.NoError(t, err)

	// second editor still holds the old version
	_, err = f.devices.Update(f.ctx, d.ID, DevicePatch{Description: Ptr("kick"), Version: Ptr(d.Version)})
	require.ErrorIs(t, err, ErrStaleVersion)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	got, err := f.devices.GetByID(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "MD 421", got.Name)
	assert.Empty(t, got.Description)
}

func TestUpdateUnknownID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.sources.Update(f.ctx, 42, SourcePatch{Name: Ptr("x")})
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestUpdateClearsNullableReference(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tp := f.typ("Synth")
	d := f.device("Juno", &tp.ID)

	got, err := f.devices.Update(f.ctx, d.ID, DevicePatch{TypeID: ClearRef()})
	require.NoError(t, err)
	assert.Nil(t, got.TypeID)
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		run  func(f *fixture) error
	}{
		{"blank type name", func(f *fixture) error {
			_, err := f.types.Create(f.ctx, &entities.Type{Name: "   "})
			return err
		}},
		{"blank device name", func(f *fixture) error {
			_, err := f.devices.Create(f.ctx, &entities.Device{})
			return err
		}},
		{"negative price", func(f *fixture) error {
			_, err := f.interfaces.Create(f.ctx, &entities.AudioInterface{ShortName: "x", Price: -1})
			return err
		}},
		{"volume above one", func(f *fixture) error {
			a := f.iface("v", nil)
			_, err := f.channels.Create(f.ctx, &entities.Channel{Label: "CH", InterfaceID: a.ID, Volume: 1.5})
			return err
		}},
		{"channel without interface", func(f *fixture) error {
			_, err := f.channels.Create(f.ctx, &entities.Channel{Label: "CH"})
			return err
		}},
		{"blank input label", func(f *fixture) error {
			_, err := f.inputs.Create(f.ctx, &entities.Input{Label: ""})
			return err
		}},
		{"label too long", func(f *fixture) error {
			_, err := f.sources.Create(f.ctx, &entities.Source{Name: strings.Repeat("a", 101)})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			err := tt.run(f)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}
