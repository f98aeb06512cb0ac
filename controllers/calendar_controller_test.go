package controller

import (
	"net/http"
	"testing"
	"time"

	"nexcrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEventLinkedToDeal(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Linked deal", "Lead", 100)

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	resp := env.request(t, env.user1, http.MethodPost, "/calendar", map[string]interface{}{
		"title":          "Reunião",
		"eventable_type": "Deal",
		"eventable_id":   deal.ID,
		"start_at":       start.Format(time.RFC3339),
		"end_at":         start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			EventableType string `json:"eventable_type"`
			Eventable     struct {
				Type string `json:"type"`
				Name string `json:"name"`
			} `json:"eventable"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Deal", body.Data.EventableType)
	assert.Equal(t, "Linked deal", body.Data.Eventable.Name)

	// The stored discriminator is the expanded kind, not the public tag.
	var event models.CalendarEvent
	require.NoError(t, env.db.First(&event, "title = ?", "Reunião").Error)
	assert.Equal(t, models.EventableDeal, event.EventableKind)
}

func TestCreateEventRejectsUnknownEventableType(t *testing.T) {
	env := setupTestEnv(t)

	start := time.Now().Add(24 * time.Hour)
	resp := env.request(t, env.user1, http.MethodPost, "/calendar", map[string]interface{}{
		"title":          "Reunião",
		"eventable_type": "Invoice",
		"eventable_id":   1,
		"start_at":       start.Format(time.RFC3339),
		"end_at":         start.Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateEventAllowsUnlinked(t *testing.T) {
	env := setupTestEnv(t)

	start := time.Now().Add(24 * time.Hour)
	resp := env.request(t, env.user1, http.MethodPost, "/calendar", map[string]interface{}{
		"title":    "Almoço",
		"start_at": start.Format(time.RFC3339),
		"end_at":   start.Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateEventRejectsInvertedWindow(t *testing.T) {
	env := setupTestEnv(t)

	start := time.Now().Add(24 * time.Hour)
	resp := env.request(t, env.user1, http.MethodPost, "/calendar", map[string]interface{}{
		"title":    "Reunião",
		"start_at": start.Format(time.RFC3339),
		"end_at":   start.Add(-time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateEventRejectsCrossTenantLink(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user2, "Foreign deal", "Lead", 100)

	start := time.Now().Add(24 * time.Hour)
	resp := env.request(t, env.user1, http.MethodPost, "/calendar", map[string]interface{}{
		"title":          "Reunião",
		"eventable_type": "Deal",
		"eventable_id":   deal.ID,
		"start_at":       start.Format(time.RFC3339),
		"end_at":         start.Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
