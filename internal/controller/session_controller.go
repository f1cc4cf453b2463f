package controller

import (
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/pkg/serverutils"
	"ai-counselor-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	SubmitMessage(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
	Memory(ctx *fiber.Ctx) error
	Run(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Post(":id/messages", c.SubmitMessage)
	h.Get(":id/messages", c.History)
	h.Post(":id/complete", c.Complete)
	h.Get(":id/memory", c.Memory)
	h.Get(":id/runs/:runId", c.Run)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.sessionService.CreateSession(ctx.UserContext(), serverutils.CurrentUserId(ctx))
	if err != nil {
		return httpError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.CreatedResponse("Session created", res))
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	res, err := c.sessionService.ListSessions(ctx.UserContext(), serverutils.CurrentUserId(ctx))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *sessionController) SubmitMessage(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrSessionNotFound.Error())
	}

	var req dto.SubmitMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.sessionService.SubmitMessage(ctx.UserContext(), serverutils.CurrentUserId(ctx), sessionId, &req, ctx.Get("Idempotency-Key"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *sessionController) History(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrSessionNotFound.Error())
	}

	res, err := c.sessionService.GetHistory(ctx.UserContext(), serverutils.CurrentUserId(ctx), sessionId)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *sessionController) Complete(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrSessionNotFound.Error())
	}

	res, err := c.sessionService.CompleteSession(ctx.UserContext(), serverutils.CurrentUserId(ctx), sessionId)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session completed", res))
}

func (c *sessionController) Memory(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrSessionNotFound.Error())
	}

	res, err := c.sessionService.GetMemory(ctx.UserContext(), serverutils.CurrentUserId(ctx), sessionId)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get memory", res))
}

func (c *sessionController) Run(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrSessionNotFound.Error())
	}
	runId, err := uuid.Parse(ctx.Params("runId"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrRunNotFound.Error())
	}

	res, err := c.sessionService.GetRun(ctx.UserContext(), serverutils.CurrentUserId(ctx), sessionId, runId)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get run", res))
}
