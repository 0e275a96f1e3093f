package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/pkg/logger"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IMindMapController interface {
	RegisterRoutes(r fiber.Router)
	Generate(ctx *fiber.Ctx) error
	GenerateStream(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	StreamWs(ctx *fiber.Ctx) error
	ExpandNode(ctx *fiber.Ctx) error
	RegenerateNode(ctx *fiber.Ctx) error
	Summarize(ctx *fiber.Ctx) error
	ShowMap(ctx *fiber.Ctx) error
	ShowJob(ctx *fiber.Ctx) error
}

type mindmapController struct {
	mindmapService service.IMindMapService
	logger         logger.ILogger
}

func NewMindMapController(mindmapService service.IMindMapService, log logger.ILogger) IMindMapController {
	return &mindmapController{
		mindmapService: mindmapService,
		logger:         log,
	}
}

func (c *mindmapController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/mindmap/v1")

	// The browser cannot set headers on EventSource/WebSocket requests,
	// these two authenticate via a token query param instead.
	h.Get("stream/:jobId", c.Stream)
	h.Get("ws/:jobId", c.StreamWs)

	h.Use(serverutils.JwtMiddleware)
	h.Post("generate", c.Generate)
	h.Post("generate/stream", c.GenerateStream)
	h.Get("job/:id", c.ShowJob)
	h.Get(":id", c.ShowMap)
	h.Post(":id/summarize", c.Summarize)
	h.Post(":id/node/:nodeId/expand", c.ExpandNode)
	h.Post(":id/node/:nodeId/regenerate", c.RegenerateNode)
}

func (c *mindmapController) Generate(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.GenerateMapRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.mindmapService.Generate(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Generation job accepted", res))
}

// GenerateStream creates the generation job and streams its events on
// the same response as server-sent events.
func (c *mindmapController) GenerateStream(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.GenerateMapRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.mindmapService.Generate(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	c.streamSSE(ctx, userId, res.JobId)
	return nil
}

// Stream attaches to an existing generation job as server-sent events.
func (c *mindmapController) Stream(ctx *fiber.Ctx) error {
	userId, err := userIdFromToken(ctx)
	if err != nil {
		return err
	}
	jobId, err := uuid.Parse(ctx.Params("jobId"))
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeValidation, "invalid job id", err)
	}

	c.streamSSE(ctx, userId, jobId)
	return nil
}

func (c *mindmapController) streamSSE(ctx *fiber.Ctx, userId, jobId uuid.UUID) {
	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	svc := c.mindmapService
	log := c.logger
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber context is gone once this runs, the stream manages
		// its own lifetime via the configured timeout.
		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan dto.StreamEvent, 16)
		go svc.Stream(streamCtx, userId, jobId, out)

		for evt := range out {
			data, err := json.Marshal(evt)
			if err != nil {
				log.Error("mindmap", "stream event marshal failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			if err := w.Flush(); err != nil {
				// Client went away, stop the poll loop and drain what it
				// already buffered.
				cancel()
				for range out {
				}
				return
			}
		}
	}))
}

// StreamWs attaches to an existing generation job over a websocket.
func (c *mindmapController) StreamWs(ctx *fiber.Ctx) error {
	userId, err := userIdFromToken(ctx)
	if err != nil {
		return err
	}
	jobId, err := uuid.Parse(ctx.Params("jobId"))
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeValidation, "invalid job id", err)
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	svc := c.mindmapService
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan dto.StreamEvent, 16)
		go svc.Stream(streamCtx, userId, jobId, out)

		for evt := range out {
			if err := conn.WriteJSON(evt); err != nil {
				cancel()
				for range out {
				}
				return
			}
		}
	})(ctx)
}

func (c *mindmapController) ExpandNode(ctx *fiber.Ctx) error {
	return c.nodeOperation(ctx, func(userId, mindmapId uuid.UUID, nodeKey string, provider, model string) (*dto.GenerationJobResponse, error) {
		return c.mindmapService.ExpandNode(ctx.Context(), userId, mindmapId, nodeKey, &dto.ExpandNodeRequest{
			Provider: provider, Model: model,
		})
	})
}

func (c *mindmapController) RegenerateNode(ctx *fiber.Ctx) error {
	return c.nodeOperation(ctx, func(userId, mindmapId uuid.UUID, nodeKey string, provider, model string) (*dto.GenerationJobResponse, error) {
		return c.mindmapService.RegenerateNode(ctx.Context(), userId, mindmapId, nodeKey, &dto.RegenerateNodeRequest{
			Provider: provider, Model: model,
		})
	})
}

func (c *mindmapController) nodeOperation(ctx *fiber.Ctx, run func(userId, mindmapId uuid.UUID, nodeKey, provider, model string) (*dto.GenerationJobResponse, error)) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	mindmapId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeValidation, "invalid mind map id", err)
	}
	nodeKey := ctx.Params("nodeId")

	var req dto.ExpandNodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := run(userId, mindmapId, nodeKey, req.Provider, req.Model)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Generation job accepted", res))
}

func (c *mindmapController) Summarize(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	mindmapId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeValidation, "invalid mind map id", err)
	}

	var req dto.SummarizeMapRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.mindmapService.Summarize(ctx.Context(), userId, mindmapId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Summary job accepted", res))
}

func (c *mindmapController) ShowMap(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	mindmapId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeValidation, "invalid mind map id", err)
	}

	res, err := c.mindmapService.GetMap(ctx.Context(), userId, mindmapId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get mind map", res))
}

func (c *mindmapController) ShowJob(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	jobId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAppError(serverutils.ErrTypeValidation, "invalid job id", err)
	}

	res, err := c.mindmapService.GetJob(ctx.Context(), userId, jobId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get generation job", res))
}

// userIdFromToken authenticates stream endpoints. The token comes from
// the "token" query param, or the Authorization header for non-browser
// clients.
func userIdFromToken(ctx *fiber.Ctx) (uuid.UUID, error) {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
	}
	userIdStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "token missing user_id")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}
	return userId, nil
}

