package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReportHandler struct {
	reports    *services.ReportService
	queries    *services.ReportQueryService
	resolution *services.ResolutionService
}

func NewReportHandler(reports *services.ReportService, queries *services.ReportQueryService, resolution *services.ResolutionService) *ReportHandler {
	return &ReportHandler{reports: reports, queries: queries, resolution: resolution}
}

// CreateReport files a report from an authenticated reader.
func (h *ReportHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.reports.CreateReport(c.UserContext(), userID, req.Target, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) ListReports(c *fiber.Ctx) error {
	var filter services.ReportFilter

	if s := c.Query("status"); s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		filter.Status = status
	}
	if t := c.Query("type"); t != "" {
		kind, err := models.ParseKind(t)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		filter.Kind = kind
	}
	filter.Search = c.Query("search")
	filter.Page, _ = strconv.Atoi(c.Query("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.Query("limit", "20"))

	page, err := h.queries.List(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

func (h *ReportHandler) Counts(c *fiber.Ctx) error {
	counts, err := h.queries.Counts(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(counts)
}

func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid report ID",
		})
	}

	view, err := h.queries.Get(c.UserContext(), reportID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// ResolveReport moves a pending report to a final status and applies its action.
func (h *ReportHandler) ResolveReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid report ID",
		})
	}

	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "InvalidAction",
		})
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "InvalidAction",
		})
	}

	report, err := h.resolution.Resolve(c.UserContext(), reportID, middleware.ModeratorID(c), services.Decision{
		NewStatus:     status,
		Action:        action,
		ModeratorNote: req.ModeratorNote,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

// fail maps service errors to responses. Anything unexpected is logged and
// sent to Sentry.
func (h *ReportHandler) fail(c *fiber.Ctx, err error) error {
	var resolved *services.AlreadyResolvedError
	var actionErr *services.TargetActionError

	switch {
	case errors.Is(err, services.ErrReportNotFound), errors.Is(err, services.ErrTargetMissing):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "NotFound",
		})
	case errors.As(err, &resolved):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "AlreadyResolved", Status: string(resolved.Status),
		})
	case errors.Is(err, services.ErrResolutionInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "ResolutionInProgress",
		})
	case errors.Is(err, services.ErrInvalidAction):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "InvalidAction",
		})
	case errors.Is(err, services.ErrInvalidReport):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "InvalidReport",
		})
	case errors.As(err, &actionErr):
		capture(c, err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(), Code: "TargetActionFailed", Timeout: actionErr.Timeout(),
		})
	}

	capture(c, err)
	slog.Error("report request failed",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", requestID(c),
		"moderator_id", middleware.ModeratorID(c),
		"error", err.Error(),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func capture(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
