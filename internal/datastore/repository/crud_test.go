package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

// crudCase drives the generic create/read/list/delete properties for one entity
type crudCase struct {
	name     string
	sentinel error
	create   func(f *fixture, i int) (uint, any)
	get      func(f *fixture, id uint) (any, error)
	list     func(f *fixture) (int, error)
	delete   func(f *fixture, id uint) error
}

func crudCases() []crudCase {
	return []crudCase{
		{
			name:     "user",
			sentinel: ErrUserNotFound,
			create: func(f *fixture, i int) (uint, any) {
				u := f.user(string(rune('a'+i))+"@example.com", entities.RoleOperator)
				return u.ID, u
			},
			get:    func(f *fixture, id uint) (any, error) { return f.users.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.users.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.users.Delete(f.ctx, id) },
		},
		{
			name:     "type",
			sentinel: ErrTypeNotFound,
			create: func(f *fixture, i int) (uint, any) {
				tp := f.typ("type-" + string(rune('a'+i)))
				return tp.ID, tp
			},
			get:    func(f *fixture, id uint) (any, error) { return f.types.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.types.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.types.Delete(f.ctx, id) },
		},
		{
			name:     "device",
			sentinel: ErrDeviceNotFound,
			create: func(f *fixture, i int) (uint, any) {
				d := f.device("SM58", nil)
				return d.ID, d
			},
			get:    func(f *fixture, id uint) (any, error) { return f.devices.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.devices.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.devices.Delete(f.ctx, id) },
		},
		{
			name:     "frequency",
			sentinel: ErrFrequencyNotFound,
			create: func(f *fixture, i int) (uint, any) {
				fr := f.frequency(float64(8 + i))
				return fr.ID, fr
			},
			get:    func(f *fixture, id uint) (any, error) { return f.frequencies.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.frequencies.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.frequencies.Delete(f.ctx, id) },
		},
		{
			name:     "audio interface",
			sentinel: ErrAudioInterfaceNotFound,
			create: func(f *fixture, i int) (uint, any) {
				a := f.iface("if-"+string(rune('a'+i)), nil)
				return a.ID, a
			},
			get:    func(f *fixture, id uint) (any, error) { return f.interfaces.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.interfaces.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.interfaces.Delete(f.ctx, id) },
		},
		{
			name:     "source",
			sentinel: ErrSourceNotFound,
			create: func(f *fixture, i int) (uint, any) {
				s := f.source("Vocals")
				return s.ID, s
			},
			get:    func(f *fixture, id uint) (any, error) { return f.sources.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.sources.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.sources.Delete(f.ctx, id) },
		},
		{
			name:     "channel",
			sentinel: ErrChannelNotFound,
			create: func(f *fixture, i int) (uint, any) {
				a := f.iface("chan-if-"+string(rune('a'+i)), nil)
				c := f.channel("CH", a.ID)
				return c.ID, c
			},
			get:    func(f *fixture, id uint) (any, error) { return f.channels.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.channels.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.channels.Delete(f.ctx, id) },
		},
		{
			name:     "input",
			sentinel: ErrInputNotFound,
			create: func(f *fixture, i int) (uint, any) {
				in := f.input("IN", nil, nil)
				return in.ID, in
			},
			get:    func(f *fixture, id uint) (any, error) { return f.inputs.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.inputs.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.inputs.Delete(f.ctx, id) },
		},
		{
			name:     "configuration",
			sentinel: ErrConfigurationNotFound,
			create: func(f *fixture, i int) (uint, any) {
				u := f.user("cfg"+string(rune('a'+i))+"@example.com", entities.RoleAdmin)
				a := f.iface("cfg-if-"+string(rune('a'+i)), nil)
				c, err := f.configs.Save(f.ctx, SnapshotRequest{UserID: u.ID, InterfaceID: a.ID})
				require.NoError(f.t, err)
				return c.ID, c
			},
			get:    func(f *fixture, id uint) (any, error) { return f.configs.GetByID(f.ctx, id) },
			list:   func(f *fixture) (int, error) { r, err := f.configs.List(f.ctx, ListOptions{}); return len(r), err },
			delete: func(f *fixture, id uint) error { return f.configs.Delete(f.ctx, id) },
		},
	}
}

func TestCreateThenGetReturnsEqualRecord(t *testing.T) {
	t.Parallel()

	for _, tc := range crudCases() {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			id, created := tc.create(f, 0)
			require.NotZero(t, id)

			got, err := tc.get(f, id)
			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	}
}

func TestDeleteThenGetReturnsNotFound(t *testing.T) {
	t.Parallel()

	for _, tc := range crudCases() {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			id, _ := tc.create(f, 0)
			require.NoError(t, tc.delete(f, id))

			_, err := tc.get(f, id)
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err))
			require.ErrorIs(t, err, tc.sentinel)

			// a second delete has nothing left to remove
			err = tc.delete(f, id)
			require.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestListReturnsExactlyN(t *testing.T) {
	t.Parallel()

	const n = 5
	for _, tc := range crudCases() {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			seen := make(map[uint]bool, n)
			for i := range n {
				id, _ := tc.create(f, i)
				seen[id] = true
			}
			assert.Len(t, seen, n, "ids must be distinct")

			got, err := tc.list(f)
			require.NoError(t, err)
			assert.Equal(t, n, got)
		})
	}
}

func TestGetByIDUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.devices.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Equal(t, errors.CategoryNotFound, errors.CategoryOf(err))
}

func TestListOrderedByIDWithLimitOffset(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var ids []uint
	for _, name := range []string{"c", "a", "b", "d"} {
		ids = append(ids, f.typ(name).ID)
	}

	all, err := f.types.List(f.ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := range all {
		assert.Equal(t, ids[i], all[i].ID)
	}

	page, err := f.types.List(f.ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	n, err := f.types.Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
