package controller

import (
	"github.com/gofiber/fiber/v2"
	"nexcrm/models"
	"nexcrm/store"
)

// Context accessors for values bound by the auth middleware.

func currentUser(c *fiber.Ctx) *models.User {
	return c.Locals("user").(*models.User)
}

func tenantStore(c *fiber.Ctx) *store.TenantStore {
	return c.Locals("store").(*store.TenantStore)
}
