package controller

import (
	"net/http"
	"testing"

	"nexcrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestForm(t *testing.T, env *testEnv) *models.PublicForm {
	t.Helper()
	resp := env.request(t, env.user1, http.MethodPost, "/admin/forms", map[string]interface{}{
		"name": "Contacto",
		"fields": []map[string]interface{}{
			{"name": "name", "label": "Nome", "type": "text", "required": true},
			{"name": "email", "label": "Email", "type": "email", "required": false},
		},
		"confirmation_message": "Obrigado!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var form models.PublicForm
	require.NoError(t, env.db.First(&form, "name = ?", "Contacto").Error)
	return &form
}

func TestCreateFormGeneratesEmbedCode(t *testing.T) {
	env := setupTestEnv(t)
	form := createTestForm(t, env)

	assert.Contains(t, form.EmbedCode, "<iframe")
	assert.Contains(t, form.EmbedCode, itoa(form.ID))
	assert.True(t, form.IsActive)
}

func TestSubmitCreatesSnapshotAndLead(t *testing.T) {
	env := setupTestEnv(t)
	form := createTestForm(t, env)

	resp := env.request(t, nil, http.MethodPost, "/forms/"+itoa(form.ID)+"/submit", map[string]interface{}{
		"data":            map[string]string{"name": "João", "email": "joao@example.com"},
		"recaptcha_token": "token",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submission models.FormSubmission
	require.NoError(t, env.db.First(&submission, "public_form_id = ?", form.ID).Error)
	assert.Contains(t, submission.Data, "joao@example.com")

	var entity models.Entity
	require.NoError(t, env.db.First(&entity, "email = ?", "joao@example.com").Error)
	assert.Equal(t, form.TenantID, entity.TenantID)
	assert.Equal(t, models.EntityTypeLead, entity.Type)
	assert.Equal(t, "Formulário Público: Contacto", entity.Source)
}

func TestSubmitRejectsFailedCaptcha(t *testing.T) {
	env := setupTestEnv(t)
	form := createTestForm(t, env)
	env.captcha.ok = false

	resp := env.request(t, nil, http.MethodPost, "/forms/"+itoa(form.ID)+"/submit", map[string]interface{}{
		"data":            map[string]string{"name": "João"},
		"recaptcha_token": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	env.db.Model(&models.FormSubmission{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitEnforcesRequiredFields(t *testing.T) {
	env := setupTestEnv(t)
	form := createTestForm(t, env)

	resp := env.request(t, nil, http.MethodPost, "/forms/"+itoa(form.ID)+"/submit", map[string]interface{}{
		"data":            map[string]string{"email": "joao@example.com"},
		"recaptcha_token": "token",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInactiveFormIsNotPublic(t *testing.T) {
	env := setupTestEnv(t)
	form := createTestForm(t, env)
	require.NoError(t, env.db.Model(form).Update("is_active", false).Error)

	resp := env.request(t, nil, http.MethodGet, "/forms/"+itoa(form.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, nil, http.MethodPost, "/forms/"+itoa(form.ID)+"/submit", map[string]interface{}{
		"data":            map[string]string{"name": "João"},
		"recaptcha_token": "token",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
