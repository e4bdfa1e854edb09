package transfer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

var quiet = logger.NewSlogLogger(nil, logger.LogLevelError)

func openStore(t *testing.T) *datastore.Store {
	t.Helper()
	store, err := datastore.OpenSQLite(t.Context(), datastore.MemoryPath, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seed fills store with one row of every entity and a saved configuration
func seed(t *testing.T, store *datastore.Store) *entities.Configuration {
	t.Helper()
	ctx := t.Context()

	u, err := store.Users.Create(ctx, &entities.User{Email: "op@example.com", Name: "Otto", Role: entities.RoleOperator}, "Passw0rdX")
	require.NoError(t, err)
	typ, err := store.Types.Create(ctx, &entities.Type{Name: "Microphone"})
	require.NoError(t, err)
	dev, err := store.Devices.Create(ctx, &entities.Device{Name: "SM58", TypeID: &typ.ID})
	require.NoError(t, err)
	_, err = store.Frequencies.EnsureCommon(ctx)
	require.NoError(t, err)
	iface, err := store.Interfaces.Create(ctx, &entities.AudioInterface{ShortName: "UMC", ModelName: "UMC1820"})
	require.NoError(t, err)
	src, err := store.Sources.Create(ctx, &entities.Source{Name: "Vocals", TypeID: &typ.ID})
	require.NoError(t, err)
	ch, err := store.Channels.Create(ctx, &entities.Channel{Label: "Lead", InterfaceID: iface.ID, Volume: 0.5, SourceID: &src.ID})
	require.NoError(t, err)
	_, err = store.Inputs.Create(ctx, &entities.Input{Label: "In 1", ChannelID: &ch.ID, DeviceID: &dev.ID})
	require.NoError(t, err)

	// bump a version so the sample check compares more than the default
	_, err = store.Types.Update(ctx, typ.ID, repository.TypePatch{Description: repository.Ptr("Dynamic microphones")})
	require.NoError(t, err)

	cfg, err := store.Configurations.Save(ctx, repository.SnapshotRequest{UserID: u.ID, InterfaceID: iface.ID, Name: "Gig"})
	require.NoError(t, err)
	return cfg
}

func TestCopyAndVerify(t *testing.T) {
	t.Parallel()
	source, target := openStore(t), openStore(t)
	cfg := seed(t, source)

	stats, err := Copy(t.Context(), source, target, Options{BatchSize: 2, Log: quiet})
	require.NoError(t, err)
	require.Len(t, stats.Tables, len(entities.All()))
	copied, skipped, failed := stats.Totals()
	assert.Positive(t, copied)
	assert.Zero(t, skipped)
	assert.Zero(t, failed)

	counts, err := Verify(t.Context(), source, target, 0)
	require.NoError(t, err)
	for _, c := range counts {
		assert.True(t, c.Match(), c.Name)
	}

	// references survive because primary keys are kept
	got, err := target.Configurations.GetByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.InterfaceID, got.InterfaceID)
	assert.Len(t, got.Channels, 1)

	u, err := target.Users.Authenticate(t.Context(), "op@example.com", "Passw0rdX")
	require.NoError(t, err)
	assert.Equal(t, "Otto", u.Name)

	var out bytes.Buffer
	stats.Print(&out)
	assert.Contains(t, out.String(), "configuration_channels")
	assert.Contains(t, out.String(), "TOTAL")
}

func TestCopyIsRepeatable(t *testing.T) {
	t.Parallel()
	source, target := openStore(t), openStore(t)
	seed(t, source)

	first, err := Copy(t.Context(), source, target, Options{Log: quiet})
	require.NoError(t, err)
	copied, _, _ := first.Totals()

	second, err := Copy(t.Context(), source, target, Options{Log: quiet})
	require.NoError(t, err)
	again, skipped, failed := second.Totals()
	assert.Zero(t, again)
	assert.Equal(t, copied, skipped)
	assert.Zero(t, failed)

	third, err := Copy(t.Context(), source, target, Options{Clean: true, Log: quiet})
	require.NoError(t, err)
	recopied, _, _ := third.Totals()
	assert.Equal(t, copied, recopied)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	t.Parallel()

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()
		source, target := openStore(t), openStore(t)
		seed(t, source)
		_, err := Copy(t.Context(), source, target, Options{Log: quiet})
		require.NoError(t, err)

		require.NoError(t, target.DB().Exec("DELETE FROM inputs").Error)
		counts, err := Verify(t.Context(), source, target, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMismatch)
		assert.True(t, errors.IsCategory(err, errors.CategoryConflict))
		assert.Len(t, counts, len(entities.All()))
	})

	t.Run("stale version", func(t *testing.T) {
		t.Parallel()
		source, target := openStore(t), openStore(t)
		seed(t, source)
		_, err := Copy(t.Context(), source, target, Options{Log: quiet})
		require.NoError(t, err)

		require.NoError(t, target.DB().Exec("UPDATE types SET version = version + 1").Error)
		_, err = Verify(t.Context(), source, target, 0)
		require.ErrorIs(t, err, ErrMismatch)
		assert.Contains(t, err.Error(), "types")
	})
}

func TestCopyRejectsHugeBatch(t *testing.T) {
	t.Parallel()
	source, target := openStore(t), openStore(t)
	_, err := Copy(t.Context(), source, target, Options{BatchSize: MaxBatchSize + 1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
