package controller

import (
	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/pkg/serverutils"
	"leadqualify-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Advance(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
}

type conversationController struct {
	service service.IConversationService
}

func NewConversationController(service service.IConversationService) IConversationController {
	return &conversationController{service: service}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("advance", c.Advance)
	h.Post("reset", c.Reset)
}

func (c *conversationController) Advance(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.AdvanceConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.TenantId = tenantId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Advance(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success advance conversation", res))
}

func (c *conversationController) Reset(ctx *fiber.Ctx) error {
	var req dto.ResetConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.Reset(ctx.Context(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success reset conversation", nil))
}
