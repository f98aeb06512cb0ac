package controller

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"nexcrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsBody struct {
	Data []struct {
		ProductName   string  `json:"product_name"`
		TotalQuantity int     `json:"total_quantity"`
		TotalValue    float64 `json:"total_value"`
		DealCount     int     `json:"deal_count"`
	} `json:"data"`
}

func seedStatsFixture(t *testing.T, env *testEnv) (lead *models.Deal, won *models.Deal) {
	t.Helper()
	lead = env.createDeal(t, env.user1, "D1", "Lead", 0)
	won = env.createDeal(t, env.user1, "D2", "Ganho", 0)

	require.NoError(t, env.db.Create(&models.DealProduct{DealID: lead.ID, ProductName: "X", Quantity: 2, UnitPrice: 10, TotalPrice: 20}).Error)
	require.NoError(t, env.db.Create(&models.DealProduct{DealID: won.ID, ProductName: "X", Quantity: 1, UnitPrice: 10, TotalPrice: 10}).Error)
	return lead, won
}

func TestProductStatsRollsUpAcrossDeals(t *testing.T) {
	env := setupTestEnv(t)
	seedStatsFixture(t, env)

	resp := env.request(t, env.user1, http.MethodGet, "/product-stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statsBody
	decodeBody(t, resp, &body)

	require.Len(t, body.Data, 1)
	assert.Equal(t, "X", body.Data[0].ProductName)
	assert.Equal(t, 3, body.Data[0].TotalQuantity)
	assert.Equal(t, 30.0, body.Data[0].TotalValue)
	assert.Equal(t, 2, body.Data[0].DealCount)
}

func TestProductStatsStageFilterActsOnParentDeal(t *testing.T) {
	env := setupTestEnv(t)
	seedStatsFixture(t, env)

	resp := env.request(t, env.user1, http.MethodGet, "/product-stats?stage=Lead", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statsBody
	decodeBody(t, resp, &body)

	require.Len(t, body.Data, 1)
	assert.Equal(t, 2, body.Data[0].TotalQuantity)
	assert.Equal(t, 20.0, body.Data[0].TotalValue)
	assert.Equal(t, 1, body.Data[0].DealCount)
}

func TestProductStatsIsolatedPerTenant(t *testing.T) {
	env := setupTestEnv(t)
	seedStatsFixture(t, env)

	resp := env.request(t, env.user2, http.MethodGet, "/product-stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statsBody
	decodeBody(t, resp, &body)
	assert.Empty(t, body.Data)
}

func TestProductStatsOrderedByValueDesc(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "D1", "Lead", 0)

	require.NoError(t, env.db.Create(&models.DealProduct{DealID: deal.ID, ProductName: "Cheap", Quantity: 1, UnitPrice: 5, TotalPrice: 5}).Error)
	require.NoError(t, env.db.Create(&models.DealProduct{DealID: deal.ID, ProductName: "Expensive", Quantity: 1, UnitPrice: 500, TotalPrice: 500}).Error)

	resp := env.request(t, env.user1, http.MethodGet, "/product-stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statsBody
	decodeBody(t, resp, &body)

	require.Len(t, body.Data, 2)
	assert.Equal(t, "Expensive", body.Data[0].ProductName)
	assert.Equal(t, "Cheap", body.Data[1].ProductName)
}

func TestProductStatsCSVExport(t *testing.T) {
	env := setupTestEnv(t)
	seedStatsFixture(t, env)

	resp := env.request(t, env.user1, http.MethodGet, "/product-stats/export/csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Produto,Quantidade Total,Valor Total,Número de Negócios", strings.TrimSpace(lines[0]))
	assert.Equal(t, "X,3,30.00,2", strings.TrimSpace(lines[1]))
}
