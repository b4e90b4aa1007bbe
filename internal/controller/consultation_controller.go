package controller

import (
	"errors"

	"teleconsult-be/internal/pkg/serverutils"
	"teleconsult-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConsultationController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Messages(ctx *fiber.Ctx) error
	MarkRead(ctx *fiber.Ctx) error
}

type consultationController struct {
	consultationService *service.ConsultationService
}

func NewConsultationController(consultationService *service.ConsultationService) IConsultationController {
	return &consultationController{
		consultationService: consultationService,
	}
}

func (c *consultationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/consultation/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get(":id", c.Show)
	h.Get(":id/messages", c.Messages)
	h.Patch(":id/read", c.MarkRead)
}

func (c *consultationController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid consultation id")
	}

	consultation, err := c.consultationService.GetByID(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrConsultationNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "consultation not found")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show consultation", consultation))
}

func (c *consultationController) Messages(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid consultation id")
	}

	limit := ctx.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := ctx.QueryInt("offset", 0)

	messages, total, err := c.consultationService.History(ctx.Context(), id, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrConsultationNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "consultation not found")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list messages", fiber.Map{
		"messages": messages,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	}))
}

func (c *consultationController) MarkRead(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid consultation id")
	}

	readerType, _ := ctx.Locals("user_type").(string)
	if readerType != "doctor" && readerType != "patient" {
		return fiber.NewError(fiber.StatusForbidden, "unknown user type")
	}

	if err := c.consultationService.MarkRead(ctx.Context(), id, readerType); err != nil {
		if errors.Is(err, service.ErrConsultationNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "consultation not found")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success mark consultation read", nil))
}
