package controller

import (
	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/pkg/llm/factory"
	"ai-mindmap-be/pkg/secrets"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProviderKeyController stores per-user LLM API keys. Keys are encrypted
// at rest and never returned once stored.
type IProviderKeyController interface {
	RegisterRoutes(r fiber.Router)
	Store(ctx *fiber.Ctx) error
}

type providerKeyController struct {
	secretsService *secrets.Service
}

func NewProviderKeyController(secretsService *secrets.Service) IProviderKeyController {
	return &providerKeyController{
		secretsService: secretsService,
	}
}

func (c *providerKeyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/provider-key/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Store)
}

func (c *providerKeyController) Store(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.StoreProviderKeyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// Key format is checked before anything touches storage.
	ok, err := factory.ValidateKey(req.Provider, req.APIKey)
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeUnsupportedProvider, err.Error(), err)
	}
	if !ok {
		return serverutils.NewAppError(serverutils.ErrTypeValidation,
			"api key does not match the provider's key format", nil)
	}

	if err := c.secretsService.StoreKey(ctx.Context(), userId, req.Provider, req.APIKey); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Provider key stored", dto.StoreProviderKeyResponse{
		Provider: req.Provider,
	}))
}
