package controller

import (
	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type dealProductInput struct {
	ProductName string  `json:"product_name" validate:"required,max=255"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// AddProduct appends a line item to a deal. The total is always computed
// server-side from quantity and unit price.
func (dc *DealController) AddProduct(c *fiber.Ctx) error {
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	var input dealProductInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	product := models.DealProduct{
		DealID:      deal.ID,
		ProductName: input.ProductName,
		Quantity:    input.Quantity,
		UnitPrice:   utils.Round2(input.UnitPrice),
		TotalPrice:  utils.Round2(float64(input.Quantity) * input.UnitPrice),
	}

	if err := dc.DB.Create(&product).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add product", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(product))
}

// RemoveProduct deletes a line item. The product must belong to the deal in
// the URL; a mismatched pair reports not found.
func (dc *DealController) RemoveProduct(c *fiber.Ctx) error {
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	var product models.DealProduct
	if err := dc.DB.First(&product, utils.ParseUint(c.Params("productId"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Product not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch product", err)
	}

	if product.DealID != deal.ID {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Product not found", nil)
	}

	if err := dc.DB.Delete(&product).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove product", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
