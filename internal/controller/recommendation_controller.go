package controller

import (
	"strconv"

	"rl-recommender-be/internal/dto"
	"rl-recommender-be/internal/pkg/serverutils"
	"rl-recommender-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRecommendationController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	SessionStats(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	SessionHistory(ctx *fiber.Ctx) error
	ListArticles(ctx *fiber.Ctx) error
	GetArticle(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
}

type recommendationController struct {
	service service.IRecommendationService
	auth    fiber.Handler
}

func NewRecommendationController(service service.IRecommendationService, auth fiber.Handler) IRecommendationController {
	return &recommendationController{service: service, auth: auth}
}

func (c *recommendationController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/articles", c.ListArticles)
	r.Get("/articles/:id", c.GetArticle)

	r.Post("/ask", c.auth, c.Ask)
	r.Post("/feedback", c.auth, c.Feedback)

	h := r.Group("/session")
	h.Use(c.auth) // protected
	h.Post("", c.CreateSession)
	h.Get(":user_id", c.SessionStats)
	h.Get(":user_id/history", c.SessionHistory)
}

func (c *recommendationController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AnswerQuestion(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

// ownUser returns the :user_id path param, refusing ids other than the caller's.
func ownUser(ctx *fiber.Ctx) (string, error) {
	userId := ctx.Params("user_id")
	if userId != serverutils.UserID(ctx) {
		return "", serverutils.ErrForbidden
	}
	return userId, nil
}

func (c *recommendationController) SessionStats(ctx *fiber.Ctx) error {
	userId, err := ownUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.SessionStats(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session stats", res))
}

func (c *recommendationController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *recommendationController) SessionHistory(ctx *fiber.Ctx) error {
	userId, err := ownUser(ctx)
	if err != nil {
		return err
	}

	var query dto.SessionHistoryQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.service.SessionHistory(ctx.UserContext(), userId, query.Limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session history", res))
}

func (c *recommendationController) ListArticles(ctx *fiber.Ctx) error {
	res, err := c.service.ListArticles(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all articles", res))
}

func (c *recommendationController) GetArticle(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "article id must be an integer")
	}

	res, err := c.service.GetArticle(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get article", res))
}

func (c *recommendationController) Health(ctx *fiber.Ctx) error {
	res, err := c.service.HealthSummary(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get health", res))
}

func (c *recommendationController) Feedback(ctx *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SubmitFeedback(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Feedback accepted", res))
}
