package http

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Order    *OrderHandler
	Payment  *PaymentHandler
	Tracking *TrackingHandler
	Catalog  *CatalogHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Use(otelfiber.Middleware())

	api := app.Group("/api")

	orders := api.Group("/orders")
	orders.Post("", h.Order.Create)
	orders.Get("/:id", h.Order.Get)
	orders.Post("/:id/items", h.Order.AddItem)
	orders.Patch("/:id/items/:itemID", h.Order.UpdateItemQuantity)
	orders.Delete("/:id/items/:itemID", h.Order.RemoveItem)
	orders.Post("/:id/cancellation", h.Order.FileCancellation)
	orders.Post("/:id/return", h.Order.FileReturn)
	orders.Get("/:id/steps", h.Tracking.ListSteps)
	orders.Post("/:id/steps/complete", h.Tracking.CompleteStep)
	orders.Get("/:id/checklist", h.Tracking.GetChecklist)

	payments := api.Group("/payments")
	payments.Post("/stripe", h.Payment.CreateStripeIntent)
	payments.Post("/mpesa", h.Payment.CreateMpesaIntent)
	payments.Post("/refund", h.Payment.Refund)

	api.Post("/callback", h.Payment.StkCallback)
	api.Post("/result", h.Payment.B2CResult)
	api.Post("/timeout", h.Payment.B2CTimeout)

	api.Post("/checklists/:id/complete", h.Tracking.CompleteChecklist)
	api.Patch("/item-checklists/:id", h.Tracking.UpdateChecklistItem)

	items := api.Group("/items")
	items.Get("", h.Catalog.List)
	items.Get("/:sku", h.Catalog.Get)
	items.Post("", h.Catalog.Save)
}
