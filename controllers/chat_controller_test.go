package controller

import (
	"net/http"
	"testing"

	"nexcrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessagePersistsTranscript(t *testing.T) {
	env := setupTestEnv(t)
	env.provider.reply = "Tens 0 negócios abertos."

	resp := env.request(t, env.user1, http.MethodPost, "/chat", map[string]interface{}{
		"message": "Quantos negócios tenho no pipeline?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var conversation models.ChatConversation
	require.NoError(t, env.db.First(&conversation, "user_id = ?", env.user1.ID).Error)
	assert.Contains(t, conversation.Messages, "Quantos negócios tenho no pipeline?")
	assert.Contains(t, conversation.Messages, "Tens 0 negócios abertos.")
}

func TestDealKeywordPullsTenantDealsIntoPrompt(t *testing.T) {
	env := setupTestEnv(t)
	env.createDeal(t, env.user1, "Mega negócio", "Lead", 9000)
	env.createDeal(t, env.user2, "Segredo alheio", "Lead", 1)

	resp := env.request(t, env.user1, http.MethodPost, "/chat", map[string]interface{}{
		"message": "Fala-me do pipeline",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, env.provider.lastSystem, "Mega negócio")
	// The other tenant's data never reaches the prompt.
	assert.NotContains(t, env.provider.lastSystem, "Segredo alheio")
}

func TestMessageWithoutKeywordsGetsNoContext(t *testing.T) {
	env := setupTestEnv(t)
	env.createDeal(t, env.user1, "Mega negócio", "Lead", 9000)

	resp := env.request(t, env.user1, http.MethodPost, "/chat", map[string]interface{}{
		"message": "Bom dia!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NotContains(t, env.provider.lastSystem, "Mega negócio")
}

func TestSendMessageRejectsOversizedInput(t *testing.T) {
	env := setupTestEnv(t)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	resp := env.request(t, env.user1, http.MethodPost, "/chat", map[string]interface{}{
		"message": string(long),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearConversation(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.request(t, env.user1, http.MethodPost, "/chat", map[string]interface{}{
		"message": "Olá",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, env.user1, http.MethodDelete, "/chat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	env.db.Model(&models.ChatConversation{}).Where("user_id = ?", env.user1.ID).Count(&count)
	assert.Zero(t, count)
}
