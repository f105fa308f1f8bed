// Package api exposes the ledger over HTTP with fiber.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func NewApp(h *Handler, logger *zap.Logger) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               "custodial-ledger",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestLogger(logger.With(zap.String("component", "http"))))

	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Get("/program", h.Program)
	v1.Get("/authorities/:authority/account", h.AuthorityAccount)
	v1.Get("/accounts/:address", h.Account)
	v1.Get("/accounts/:address/entries", h.Entries)
	v1.Get("/holdings/:address", h.Holding)
	v1.Post("/instructions", h.SubmitInstruction)
	v1.Post("/faucet", h.Faucet)

	return app
}

// requestLogger writes one access log line per request. Errors returned by
// the chain are rendered first so the logged status is the one sent.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}
