package controller

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexcrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDealRejectsBadProbability(t *testing.T) {
	env := setupTestEnv(t)

	for _, probability := range []int{-1, 101} {
		resp := env.request(t, env.user1, http.MethodPost, "/deals", map[string]interface{}{
			"title":       "Big sale",
			"stage":       "Lead",
			"value":       100.0,
			"probability": probability,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	var count int64
	env.db.Model(&models.Deal{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateDealStampsTenantAndOwner(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.request(t, env.user1, http.MethodPost, "/deals", map[string]interface{}{
		"title":       "Big sale",
		"stage":       "Lead",
		"value":       1234.567,
		"probability": 50,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var deal models.Deal
	require.NoError(t, env.db.First(&deal, "title = ?", "Big sale").Error)
	assert.Equal(t, env.user1.TenantID, deal.TenantID)
	assert.Equal(t, env.user1.ID, deal.OwnerID)
	assert.Equal(t, 1234.57, deal.Value)
}

func TestUpdateStageReflectsInPipeline(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Moving deal", "Lead", 500)

	resp := env.request(t, env.user1, http.MethodPatch, "/deals/"+itoa(deal.ID)+"/stage", map[string]interface{}{
		"stage": "Proposta",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Board []struct {
				Stage models.DealStage `json:"stage"`
				Deals []models.Deal    `json:"deals"`
			} `json:"board"`
		} `json:"data"`
	}
	pipelineResp := env.request(t, env.user1, http.MethodGet, "/deals/pipeline", nil)
	require.Equal(t, http.StatusOK, pipelineResp.StatusCode)
	decodeBody(t, pipelineResp, &body)

	found := ""
	for _, group := range body.Data.Board {
		for _, d := range group.Deals {
			if d.ID == deal.ID {
				found = group.Stage.Name
			}
		}
	}
	assert.Equal(t, "Proposta", found)
}

func TestPipelineStagesKeepConfiguredOrder(t *testing.T) {
	env := setupTestEnv(t)

	var body struct {
		Data struct {
			Board []struct {
				Stage models.DealStage `json:"stage"`
			} `json:"board"`
		} `json:"data"`
	}
	resp := env.request(t, env.user1, http.MethodGet, "/deals/pipeline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)

	names := make([]string, 0, len(body.Data.Board))
	for _, group := range body.Data.Board {
		names = append(names, group.Stage.Name)
	}
	assert.Equal(t, []string{"Lead", "Proposta", "Negociação", "Ganho", "Perdido", "Follow Up"}, names)
}

func TestDealNotVisibleAcrossTenants(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Private deal", "Lead", 500)

	resp := env.request(t, env.user2, http.MethodGet, "/deals/"+itoa(deal.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOnlyOwnerCanModifyDeal(t *testing.T) {
	env := setupTestEnv(t)

	colleague := models.User{TenantID: env.user1.TenantID, Name: "Carla", Email: "carla@acme.test", PasswordHash: "x", IsActive: true}
	require.NoError(t, env.db.Create(&colleague).Error)

	deal := env.createDeal(t, env.user1, "Owned deal", "Lead", 500)

	resp := env.request(t, &colleague, http.MethodPatch, "/deals/"+itoa(deal.ID)+"/stage", map[string]interface{}{
		"stage": "Ganho",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var reloaded models.Deal
	require.NoError(t, env.db.First(&reloaded, deal.ID).Error)
	assert.Equal(t, "Lead", reloaded.Stage)
}

func TestAddProductComputesTotal(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Product deal", "Lead", 0)

	resp := env.request(t, env.user1, http.MethodPost, "/deals/"+itoa(deal.ID)+"/products", map[string]interface{}{
		"product_name": "Licença",
		"quantity":     3,
		"unit_price":   19.99,
		"total_price":  9999.0, // must be ignored
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var product models.DealProduct
	require.NoError(t, env.db.First(&product, "deal_id = ?", deal.ID).Error)
	assert.Equal(t, 59.97, product.TotalPrice)
}

func TestAddProductRejectsZeroQuantity(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Product deal", "Lead", 0)

	resp := env.request(t, env.user1, http.MethodPost, "/deals/"+itoa(deal.ID)+"/products", map[string]interface{}{
		"product_name": "Licença",
		"quantity":     0,
		"unit_price":   19.99,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveProductFromWrongDealIsNotFound(t *testing.T) {
	env := setupTestEnv(t)
	dealA := env.createDeal(t, env.user1, "Deal A", "Lead", 0)
	dealB := env.createDeal(t, env.user1, "Deal B", "Lead", 0)

	product := models.DealProduct{DealID: dealA.ID, ProductName: "Licença", Quantity: 1, UnitPrice: 10, TotalPrice: 10}
	require.NoError(t, env.db.Create(&product).Error)

	resp := env.request(t, env.user1, http.MethodDelete, "/deals/"+itoa(dealB.ID)+"/products/"+itoa(product.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var count int64
	env.db.Model(&models.DealProduct{}).Where("id = ?", product.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSendProposalWithoutClientEmailFails(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "No contact deal", "Proposta", 100)

	proposal := models.DealProposal{DealID: deal.ID, FilePath: "proposals/x.pdf", FileName: "x.pdf"}
	require.NoError(t, env.db.Create(&proposal).Error)

	resp := env.request(t, env.user1, http.MethodPost, "/deals/"+itoa(deal.ID)+"/proposal/send", map[string]interface{}{
		"email_body": "<p>Segue a proposta</p>",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Failed sends must not stamp the proposal.
	var reloaded models.DealProposal
	require.NoError(t, env.db.First(&reloaded, proposal.ID).Error)
	assert.Nil(t, reloaded.SentAt)
	assert.Nil(t, reloaded.SentBy)
}

func (e *testEnv) uploadProposal(t *testing.T, user *models.User, dealID uint, filename string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("proposal content"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/deals/"+itoa(dealID)+"/proposal", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Test-User", itoa(user.ID))

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestUploadProposalReplacesPrevious(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Proposal deal", "Proposta", 100)

	resp := env.uploadProposal(t, env.user1, deal.ID, "v1.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.uploadProposal(t, env.user1, deal.ID, "v2.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// At most one live proposal per deal; the survivor is the latest upload.
	var proposals []models.DealProposal
	require.NoError(t, env.db.Where("deal_id = ?", deal.ID).Find(&proposals).Error)
	require.Len(t, proposals, 1)
	assert.Equal(t, "v2.pdf", proposals[0].FileName)
}

func TestDeleteDealCascadesChildren(t *testing.T) {
	env := setupTestEnv(t)
	deal := env.createDeal(t, env.user1, "Doomed deal", "Lead", 100)

	require.NoError(t, env.db.Create(&models.DealProduct{DealID: deal.ID, ProductName: "X", Quantity: 1, UnitPrice: 1, TotalPrice: 1}).Error)
	require.NoError(t, env.db.Create(&models.DealActivity{DealID: deal.ID, UserID: env.user1.ID, Type: "note", Description: "hello"}).Error)

	resp := env.request(t, env.user1, http.MethodDelete, "/deals/"+itoa(deal.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products, activities int64
	env.db.Model(&models.DealProduct{}).Where("deal_id = ?", deal.ID).Count(&products)
	env.db.Model(&models.DealActivity{}).Where("deal_id = ?", deal.ID).Count(&activities)
	assert.Zero(t, products)
	assert.Zero(t, activities)
}
