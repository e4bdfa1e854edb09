package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// setupTestDB returns a migrated private in-memory database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=ON", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entities.All()...))
	return db
}

// fixture creates records through the repositories so that tests exercise
// the same paths as production code
type fixture struct {
	t   *testing.T
	ctx context.Context

	users       UserRepository
	types       TypeRepository
	devices     DeviceRepository
	frequencies FrequencyRepository
	interfaces  AudioInterfaceRepository
	sources     SourceRepository
	channels    ChannelRepository
	inputs      InputRepository
	configs     ConfigurationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	return &fixture{
		t:           t,
		ctx:         t.Context(),
		users:       NewUserRepository(db),
		types:       NewTypeRepository(db),
		devices:     NewDeviceRepository(db),
		frequencies: NewFrequencyRepository(db),
		interfaces:  NewAudioInterfaceRepository(db),
		sources:     NewSourceRepository(db),
		channels:    NewChannelRepository(db),
		inputs:      NewInputRepository(db),
		configs:     NewConfigurationRepository(db),
	}
}

func (f *fixture) user(email string, role entities.Role) *entities.User {
	f.t.Helper()
	u, err := f.users.Create(f.ctx, &entities.User{Email: email, Name: "Test User", Role: role}, "Passw0rdX")
	require.NoError(f.t, err)
	return u
}

func (f *fixture) typ(name string) *entities.Type {
	f.t.Helper()
	tp, err := f.types.Create(f.ctx, &entities.Type{Name: name})
	require.NoError(f.t, err)
	return tp
}

func (f *fixture) device(name string, typeID *uint) *entities.Device {
	f.t.Helper()
	d, err := f.devices.Create(f.ctx, &entities.Device{Name: name, TypeID: typeID})
	require.NoError(f.t, err)
	return d
}

func (f *fixture) frequency(khz float64) *entities.Frequency {
	f.t.Helper()
	fr, err := f.frequencies.Create(f.ctx, &entities.Frequency{Value: khz})
	require.NoError(f.t, err)
	return fr
}

func (f *fixture) iface(shortName string, frequencyID *uint) *entities.AudioInterface {
	f.t.Helper()
	a, err := f.interfaces.Create(f.ctx, &entities.AudioInterface{
		ShortName:      shortName,
		ModelName:      "UMC1820",
		CommercialName: "Behringer U-Phoria",
		Price:          249.99,
		FrequencyID:    frequencyID,
	})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) source(name string) *entities.Source {
	f.t.Helper()
	s, err := f.sources.Create(f.ctx, &entities.Source{Name: name})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) channel(label string, interfaceID uint) *entities.Channel {
	f.t.Helper()
	c, err := f.channels.Create(f.ctx, &entities.Channel{Label: label, InterfaceID: interfaceID, Volume: 0.5})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) input(label string, channelID, deviceID *uint) *entities.Input {
	f.t.Helper()
	in, err := f.inputs.Create(f.ctx, &entities.Input{Label: label, ChannelID: channelID, DeviceID: deviceID})
	require.NoError(f.t, err)
	return in
}
