package controller

import (
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ProductStatsController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProductStatsController(db *gorm.DB, logger *log.Logger) *ProductStatsController {
	return &ProductStatsController{
		DB:     db,
		Logger: logger,
	}
}

// productStat is one rollup row: all line items of a product name folded
// together across the tenant's deals.
type productStat struct {
	ProductName   string  `json:"product_name"`
	TotalQuantity int     `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
	DealCount     int     `json:"deal_count"`
}

// collectStats runs the rollup with the request's filters applied. Filters
// act on the parent deal; line items themselves are never filtered.
func (pc *ProductStatsController) collectStats(c *fiber.Ctx) ([]productStat, error) {
	ts := tenantStore(c)

	query := pc.DB.Table("deal_products").
		Select("deal_products.product_name, "+
			"SUM(deal_products.quantity) as total_quantity, "+
			"SUM(deal_products.total_price) as total_value, "+
			"COUNT(DISTINCT deal_products.deal_id) as deal_count").
		Joins("JOIN deals ON deals.id = deal_products.deal_id AND deals.deleted_at IS NULL").
		Where("deals.tenant_id = ?", ts.TenantID()).
		Where("deal_products.deleted_at IS NULL")

	if stage := c.Query("stage"); stage != "" {
		query = query.Where("deals.stage = ?", stage)
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		query = query.Where("deals.owner_id = ?", utils.ParseUint(ownerID))
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if from, err := time.Parse("2006-01-02", startDate); err == nil {
			query = query.Where("deals.created_at >= ?", from)
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		// Inclusive end date.
		if to, err := time.Parse("2006-01-02", endDate); err == nil {
			query = query.Where("deals.created_at < ?", to.AddDate(0, 0, 1))
		}
	}

	var stats []productStat
	err := query.Group("deal_products.product_name").
		Order("total_value desc").
		Scan(&stats).Error
	return stats, err
}

// GetStats returns the per-product sales rollup, highest value first
func (pc *ProductStatsController) GetStats(c *fiber.Ctx) error {
	stats, err := pc.collectStats(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch product stats", err)
	}

	return c.JSON(utils.SuccessResponse(stats))
}

// GetProductDeals lists the deals that carry a given product name
func (pc *ProductStatsController) GetProductDeals(c *fiber.Ctx) error {
	ts := tenantStore(c)

	productName := c.Query("product_name")
	if productName == "" {
		return utils.ValidationErrorResponse(c, map[string]string{"product_name": "product_name is required"})
	}

	var deals []models.Deal
	if err := ts.Deals().
		Joins("JOIN deal_products ON deal_products.deal_id = deals.id AND deal_products.deleted_at IS NULL").
		Where("deal_products.product_name = ?", productName).
		Distinct("deals.*").
		Preload("Entity").Preload("Person").Preload("Owner").
		Order("deals.created_at desc").
		Find(&deals).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deals", err)
	}

	return c.JSON(utils.SuccessResponse(deals))
}

// ExportCSV streams the product rollup as CSV with the same filters as GetStats
func (pc *ProductStatsController) ExportCSV(c *fiber.Ctx) error {
	stats, err := pc.collectStats(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch product stats", err)
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=produtos_"+time.Now().Format("20060102")+".csv")

	writer := csv.NewWriter(c)
	defer writer.Flush()

	header := []string{"Produto", "Quantidade Total", "Valor Total", "Número de Negócios"}
	if err := writer.Write(header); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate CSV", err)
	}

	for _, stat := range stats {
		record := []string{
			stat.ProductName,
			strconv.Itoa(stat.TotalQuantity),
			fmt.Sprintf("%.2f", stat.TotalValue),
			strconv.Itoa(stat.DealCount),
		}
		if err := writer.Write(record); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate CSV", err)
		}
	}

	return nil
}

// ExportXLSX writes the product rollup as an Excel workbook
func (pc *ProductStatsController) ExportXLSX(c *fiber.Ctx) error {
	stats, err := pc.collectStats(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch product stats", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Produtos"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{"Produto", "Quantidade Total", "Valor Total", "Número de Negócios"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate workbook", err)
	}

	for i, stat := range stats {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{stat.ProductName, stat.TotalQuantity, stat.TotalValue, stat.DealCount}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate workbook", err)
		}
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=produtos_"+time.Now().Format("20060102")+".xlsx")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate workbook", err)
	}
	return c.Send(buf.Bytes())
}
