// Package api is the HTTP surface over the payment core. Session
// authentication is delegated to an upstream gateway; handlers trust the
// X-User-ID header it injects.
package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sigweihq/yieldpay/pkg/payments"
	"github.com/sigweihq/yieldpay/pkg/storage"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// Handler serves the payment API.
type Handler struct {
	Service  *payments.Service
	Profiles *storage.ProfileRepository
	Records  *storage.TransactionRepository
	Logger   *slog.Logger
}

// Register mounts all routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	v1.Post("/wallet/initialize", h.InitializeWallet)
	v1.Post("/payments", h.SendPayment)
	v1.Patch("/profile/preference", h.SetPreference)
	v1.Get("/profile/:username", h.LookupProfile)
	v1.Get("/transactions/recent", h.RecentTransactions)
}

// userID resolves the authenticated user from the gateway-injected header.
func userID(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, types.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.ErrUnauthenticated
	}
	return id, nil
}

func (h *Handler) errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, types.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, types.ErrWalletNotInitialized),
		errors.Is(err, types.ErrInsufficientBalance):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	default:
		// Internals (relay URLs, SQL) stay in the log, never in the body.
		h.Logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

// InitializeWallet creates the caller's smart account, idempotently.
func (h *Handler) InitializeWallet(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	address, alreadyInitialized, err := h.Service.InitializeWallet(c.Context(), uid)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"smartAccountAddress": address,
		"alreadyInitialized":  alreadyInitialized,
	})
}

type sendPaymentBody struct {
	RecipientUserID string `json:"recipientUserId"`
	Amount          string `json:"amount"`
	Message         string `json:"message"`
}

// SendPayment submits one payment. Responds as soon as the relay accepts
// the batch; the settlement hash arrives out-of-band.
func (h *Handler) SendPayment(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	var body sendPaymentBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.RecipientUserID == "" || body.Amount == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing required fields"})
	}

	recipientID, err := uuid.Parse(body.RecipientUserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid recipient user id"})
	}

	result, err := h.Service.SendPayment(c.Context(), uid, &payments.SendPaymentRequest{
		RecipientUserID: recipientID,
		Amount:          body.Amount,
		Message:         body.Message,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"callsId": result.BatchID,
	})
}

type preferenceBody struct {
	IsEarningYield bool `json:"isEarningYield"`
}

// SetPreference flips the caller's at-rest representation preference.
func (h *Handler) SetPreference(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	var body preferenceBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.Service.SetYieldPreference(c.Context(), uid, body.IsEarningYield); err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// LookupProfile resolves a username into the public recipient identity
// used when addressing a payment.
func (h *Handler) LookupProfile(c *fiber.Ctx) error {
	if _, err := userID(c); err != nil {
		return h.errorResponse(c, err)
	}

	profile, err := h.Profiles.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"userId":         profile.UserID,
		"username":       profile.Username,
		"displayName":    profile.DisplayName,
		"hasWallet":      profile.HasWallet(),
		"isEarningYield": profile.IsEarningYield,
	})
}

// RecentTransactions returns the caller's latest transaction records.
func (h *Handler) RecentTransactions(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	records, err := h.Records.Recent(c.Context(), uid, c.QueryInt("limit", 10))
	if err != nil {
		return h.errorResponse(c, err)
	}

	out := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		out = append(out, fiber.Map{
			"transactionHash": rec.TransactionHash,
			"pending":         types.IsPendingHash(rec.TransactionHash),
			"fromUserId":      rec.FromUserID,
			"toUserId":        rec.ToUserID,
			"amount":          rec.Amount,
			"message":         rec.Message,
			"createdAt":       rec.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"transactions": out})
}
