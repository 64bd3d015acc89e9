package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-screen/internal/session"
	"github.com/i474232898/forecast-screen/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reg *Registry) {
	v1 := app.Group("/api/v1")

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		id, _ := reg.Create()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	v1.Get("/sessions/:id", withSession(reg, func(c *fiber.Ctx, ctrl *session.Controller) error {
		return c.JSON(ctrl.State())
	}))

	v1.Delete("/sessions/:id", func(c *fiber.Ctx) error {
		if err := reg.Delete(c.Params("id")); err != nil {
			return lookupError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/sessions/:id/search/open", withSession(reg, func(c *fiber.Ctx, ctrl *session.Controller) error {
		ctrl.OpenSearch()
		return c.JSON(ctrl.State())
	}))

	v1.Post("/sessions/:id/search/close", withSession(reg, func(c *fiber.Ctx, ctrl *session.Controller) error {
		ctrl.CloseSearch()
		return c.JSON(ctrl.State())
	}))

	v1.Post("/sessions/:id/search/toggle", withSession(reg, func(c *fiber.Ctx, ctrl *session.Controller) error {
		ctrl.ToggleSearch()
		return c.JSON(ctrl.State())
	}))

	v1.Post("/sessions/:id/search/query", withSession(reg, func(c *fiber.Ctx, ctrl *session.Controller) error {
		var req queryRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		ctrl.QueryChanged(req.Query)
		return c.JSON(ctrl.State())
	}))

	v1.Post("/sessions/:id/select", withSession(reg, func(c *fiber.Ctx, ctrl *session.Controller) error {
		var req selectRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		ctrl.Select(req.toSuggestion())
		return c.JSON(ctrl.State())
	}))
}

// ErrorHandler is the centralized error response for the Fiber app.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func withSession(reg *Registry, h func(*fiber.Ctx, *session.Controller) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl, err := reg.Get(c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		return h(c, ctrl)
	}
}

func lookupError(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to look up session")
}

func bindBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// queryRequest carries the current contents of the search field.
type queryRequest struct {
	Query string `json:"query" validate:"max=100"`
}

// selectRequest identifies a suggestion. An empty name is accepted and
// ignored by the session.
type selectRequest struct {
	ID      int64  `json:"id"`
	Name    string `json:"name" validate:"max=200"`
	Country string `json:"country" validate:"max=200"`
}

func (s selectRequest) toSuggestion() weather.LocationSuggestion {
	return weather.LocationSuggestion{
		ID:      s.ID,
		Name:    s.Name,
		Country: s.Country,
	}
}
