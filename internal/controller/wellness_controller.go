package controller

import (
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/pkg/serverutils"
	"ai-counselor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWellnessController interface {
	RegisterRoutes(r fiber.Router)
	LogMood(ctx *fiber.Ctx) error
	LogActivity(ctx *fiber.Ctx) error
	Today(ctx *fiber.Ctx) error
}

type wellnessController struct {
	wellnessService service.IWellnessService
}

func NewWellnessController(wellnessService service.IWellnessService) IWellnessController {
	return &wellnessController{
		wellnessService: wellnessService,
	}
}

func (c *wellnessController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/wellness")
	h.Use(serverutils.JwtMiddleware)
	h.Post("moods", c.LogMood)
	h.Post("activities", c.LogActivity)
	h.Get("activities/today", c.Today)
}

func (c *wellnessController) LogMood(ctx *fiber.Ctx) error {
	var req dto.LogMoodRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.wellnessService.LogMood(ctx.UserContext(), serverutils.CurrentUserId(ctx), &req)
	if err != nil {
		return httpError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.CreatedResponse("Mood logged", res))
}

func (c *wellnessController) LogActivity(ctx *fiber.Ctx) error {
	var req dto.LogActivityRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.wellnessService.LogActivity(ctx.UserContext(), serverutils.CurrentUserId(ctx), &req)
	if err != nil {
		return httpError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.CreatedResponse("Activity logged", res))
}

func (c *wellnessController) Today(ctx *fiber.Ctx) error {
	res, err := c.wellnessService.TodayActivities(ctx.UserContext(), serverutils.CurrentUserId(ctx))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get today's activities", res))
}
