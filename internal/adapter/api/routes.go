// Package api serves the node's host-facing control API: the driver schema,
// last-known values, condition lookups, command dispatch and custom
// parameter updates.
package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/bpaauwe/WeatherServicePrototype/internal/node"
	"github.com/bpaauwe/WeatherServicePrototype/internal/store"
)

var validate = validator.New()

// Node is the part of the node server the API drives.
type Node interface {
	Address() string
	Name() string
	CurrentQuery() domain.Query
	Drivers(ctx context.Context) ([]store.Record, error)
	Dispatch(ctx context.Context, command string) error
	ProcessConfig(params map[string]string) (bool, error)
}

// NewApp builds a fiber app with the API routes and a JSON error handler.
func NewApp(n Node, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "wsp",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Error("api request failed", "method", c.Method(), "path", c.Path(), "error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(recover.New())

	RegisterRoutes(app, n)
	return app
}

// RegisterRoutes wires the API handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, n Node) {
	v1 := app.Group("/api/v1")

	v1.Get("/node", func(c *fiber.Ctx) error {
		q := n.CurrentQuery()
		return c.JSON(fiber.Map{
			"address":  n.Address(),
			"name":     n.Name(),
			"location": q.Location,
			"units":    q.Units,
			"commands": node.Commands(),
		})
	})

	v1.Get("/schema", func(c *fiber.Ctx) error {
		return c.JSON(domain.Schema())
	})

	v1.Get("/drivers", func(c *fiber.Ctx) error {
		records, err := n.Drivers(c.UserContext())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no driver values reported yet")
			}
			return err
		}
		return c.JSON(records)
	})

	v1.Get("/conditions/:code", func(c *fiber.Ctx) error {
		code, err := strconv.Atoi(c.Params("code"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "condition code must be an integer")
		}
		desc, ok := domain.Describe(code)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown condition code "+strconv.Itoa(code))
		}
		return c.JSON(fiber.Map{"code": code, "description": desc})
	})

	v1.Post("/commands/:name", func(c *fiber.Ctx) error {
		name := c.Params("name")
		if err := n.Dispatch(c.UserContext(), name); err != nil {
			if errors.Is(err, node.ErrUnknownCommand) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return err
		}
		return c.JSON(fiber.Map{"command": name, "status": "ok"})
	})

	v1.Put("/params", func(c *fiber.Ctx) error {
		var req paramsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		changed, err := n.ProcessConfig(req.toParams())
		if err != nil {
			if errors.Is(err, node.ErrInvalidParams) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.JSON(fiber.Map{"changed": changed})
	})
}

// paramsRequest holds custom parameters. Omitted fields keep their value.
type paramsRequest struct {
	Location *string `json:"location" validate:"omitempty,min=1"`
	Units    *string `json:"units" validate:"omitempty,oneof=metric imperial standard"`
	APIKey   *string `json:"apikey" validate:"omitempty,min=1"`
}

func (r paramsRequest) toParams() map[string]string {
	params := make(map[string]string, 3)
	if r.Location != nil {
		params["location"] = *r.Location
	}
	if r.Units != nil {
		params["units"] = *r.Units
	}
	if r.APIKey != nil {
		params["apikey"] = *r.APIKey
	}
	return params
}
