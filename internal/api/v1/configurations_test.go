package api

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

func TestSnapshotAndApply(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, channels := h.seedInterface("Stage")

	rec := h.call(http.MethodPost, "/configurations/snapshot", operatorEmail,
		map[string]any{"interface_id": iface.ID, "name": "Sound check"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cfg := decode[entities.Configuration](t, rec)
	assert.Equal(t, "Sound check", cfg.Name)
	assert.Equal(t, h.operator.ID, cfg.UserID)
	require.Len(t, cfg.Channels, 2)

	// change the live state, then restore it
	rec = h.call(http.MethodPost, urlFor("/channels", channels[0].ID, "/volume"), operatorEmail, map[string]any{"volume": 0.2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.call(http.MethodPost, urlFor("/channels", channels[1].ID, "/mute"), operatorEmail, map[string]any{"value": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[entities.Channel](t, rec).Mute)

	rec = h.call(http.MethodPost, urlFor("/configurations", cfg.ID, "/apply"), operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decode[ApplyResponse](t, rec)
	assert.Equal(t, 2, applied.Channels)

	for _, ch := range channels {
		got, err := h.store.Channels.GetByID(t.Context(), ch.ID)
		require.NoError(t, err)
		assert.InDelta(t, 0.8, got.Volume, 1e-9, ch.Label)
		assert.False(t, got.Mute, ch.Label)
	}

	rec = h.call(http.MethodGet, "/configurations/latest", operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cfg.ID, decode[entities.Configuration](t, rec).ID)

	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	assert.Equal(t, []uint{cfg.ID}, h.events.saved)
	assert.Equal(t, []uint{cfg.ID}, h.events.applied)
}

func TestSnapshotValidation(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	rec := h.call(http.MethodPost, "/configurations/snapshot", operatorEmail, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.call(http.MethodPost, "/configurations/snapshot", operatorEmail, map[string]any{"interface_id": 42})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.call(http.MethodGet, "/configurations/latest", operatorEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestPerUser(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, _ := h.seedInterface("Stage")

	rec := h.call(http.MethodPost, "/configurations/snapshot", adminEmail, map[string]any{"interface_id": iface.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	adminCfg := decode[entities.Configuration](t, rec)
	assert.NotEmpty(t, adminCfg.Name, "unnamed snapshots get a default name")

	rec = h.call(http.MethodGet, "/configurations/latest", operatorEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "the operator has saved nothing")

	rec = h.call(http.MethodGet, "/configurations/latest?user_id=0", operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminCfg.ID, decode[entities.Configuration](t, rec).ID)

	rec = h.call(http.MethodGet, "/configurations?user_id="+uintString(h.admin.ID), operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[ListResponse[entities.Configuration]](t, rec).Total)
}

func TestConfigurationsByUserTotalSpansPages(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, _ := h.seedInterface("Stage")

	for range 3 {
		_, err := h.store.Configurations.Save(t.Context(), saveRequest(h.operator.ID, iface.ID))
		require.NoError(t, err)
	}
	_, err := h.store.Configurations.Save(t.Context(), saveRequest(h.admin.ID, iface.ID))
	require.NoError(t, err)

	rec := h.call(http.MethodGet, "/configurations?limit=2&user_id="+uintString(h.operator.ID), operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[ListResponse[entities.Configuration]](t, rec)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Total)
}

func TestOperatorCannotChangeOthersConfigurations(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, channels := h.seedInterface("Stage")

	cfg, err := h.store.Configurations.Save(t.Context(), saveRequest(h.admin.ID, iface.ID))
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"apply", http.MethodPost, urlFor("/configurations", cfg.ID, "/apply"), nil},
		{"rename", http.MethodPut, urlFor("/configurations", cfg.ID, ""), map[string]any{"name": "Mine"}},
		{"delete", http.MethodDelete, urlFor("/configurations", cfg.ID, ""), nil},
		{"channel setting", http.MethodPut, urlFor("/configurations", cfg.ID, "/channels/"+uintString(channels[0].ID)), map[string]any{"mute": true}},
		{"create for someone else", http.MethodPost, "/configurations", map[string]any{"interface_id": iface.ID, "user_id": h.admin.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.call(tt.method, tt.path, operatorEmail, tt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		})
	}

	// but reading is fine
	rec := h.call(http.MethodGet, urlFor("/configurations", cfg.ID, ""), operatorEmail, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportImport(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, channels := h.seedInterface("Stage")

	cfg, err := h.store.Configurations.Save(t.Context(), saveRequest(h.admin.ID, iface.ID))
	require.NoError(t, err)

	rec := h.call(http.MethodGet, urlFor("/configurations", cfg.ID, "/export"), operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "configuration-"+uintString(cfg.ID)+".yaml")

	var exported entities.Configuration
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, cfg.Name, exported.Name)
	require.Len(t, exported.Channels, len(channels))

	rec = h.raw(http.MethodPost, "/configurations/import", operatorEmail, "application/yaml", bytes.NewReader(rec.Body.Bytes()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	imported := decode[entities.Configuration](t, rec)
	assert.NotEqual(t, cfg.ID, imported.ID)
	assert.Equal(t, h.operator.ID, imported.UserID, "imports belong to the caller")
	assert.Equal(t, cfg.Name, imported.Name)
	require.Len(t, imported.Channels, len(channels))
	assert.Equal(t, channels[0].ID, imported.Channels[0].ChannelID)

	rec = h.raw(http.MethodPost, "/configurations/import", operatorEmail, "application/yaml", bytes.NewReader([]byte("name: [")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateConfiguration(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, channels := h.seedInterface("Stage")
	_, otherChannels := h.seedInterface("Booth")

	rec := h.call(http.MethodPost, "/configurations", operatorEmail, map[string]any{
		"name":         "Manual",
		"interface_id": iface.ID,
		"channels": []map[string]any{
			{"channel_id": channels[0].ID, "volume": 0.5, "mute": true},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cfg := decode[entities.Configuration](t, rec)
	require.Len(t, cfg.Channels, 1)
	assert.InDelta(t, 0.5, cfg.Channels[0].Volume, 1e-9)

	// settings must belong to channels of the configuration's interface
	rec = h.call(http.MethodPost, "/configurations", operatorEmail, map[string]any{
		"interface_id": iface.ID,
		"channels":     []map[string]any{{"channel_id": otherChannels[0].ID}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestChannelSettingAndDelete(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, channels := h.seedInterface("Stage")

	cfg, err := h.store.Configurations.Save(t.Context(), saveRequest(h.operator.ID, iface.ID))
	require.NoError(t, err)

	rec := h.call(http.MethodPut, urlFor("/configurations", cfg.ID, "/channels/"+uintString(channels[1].ID)), operatorEmail,
		map[string]any{"volume": 0.3, "solo": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	setting := decode[entities.ChannelSetting](t, rec)
	assert.InDelta(t, 0.3, setting.Volume, 1e-9)
	assert.True(t, setting.Solo)

	rec = h.call(http.MethodPut, urlFor("/configurations", cfg.ID, "/channels/9999"), operatorEmail, map[string]any{"mute": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.call(http.MethodPut, urlFor("/configurations", cfg.ID, ""), operatorEmail,
		map[string]any{"name": "Evening", "version": cfg.Version})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Evening", decode[entities.Configuration](t, rec).Name)

	rec = h.call(http.MethodDelete, urlFor("/configurations", cfg.ID, ""), operatorEmail, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.call(http.MethodGet, urlFor("/configurations", cfg.ID, ""), operatorEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	assert.Equal(t, []uint{cfg.ID}, h.events.deleted)
}

func TestInterfaceChildren(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	iface, channels := h.seedInterface("Stage")

	_, err := h.store.Inputs.Create(t.Context(), &entities.Input{Label: "In 1", ChannelID: &channels[0].ID})
	require.NoError(t, err)

	rec := h.call(http.MethodGet, urlFor("/interfaces", iface.ID, "/channels"), operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Channel](t, rec), 2)

	rec = h.call(http.MethodGet, urlFor("/channels", channels[0].ID, "/inputs"), operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Input](t, rec), 1)

	rec = h.call(http.MethodGet, "/inputs?search=in", operatorEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[ListResponse[entities.Input]](t, rec).Total)

	rec = h.call(http.MethodGet, "/interfaces/999/channels", operatorEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// deleting an interface takes its channels with it
	rec = h.call(http.MethodDelete, urlFor("/interfaces", iface.ID, ""), adminEmail, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.call(http.MethodGet, urlFor("/channels", channels[0].ID, ""), operatorEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChannelFlagNeedsValue(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	_, channels := h.seedInterface("Stage")

	rec := h.call(http.MethodPost, urlFor("/channels", channels[0].ID, "/solo"), operatorEmail, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.call(http.MethodPost, urlFor("/channels", channels[0].ID, "/volume"), operatorEmail, map[string]any{"volume": 1.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
