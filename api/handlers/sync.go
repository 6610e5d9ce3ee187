package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	apierrors "github.com/customeros/mailsync/api/errors"
	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type SyncHandler struct {
	accounts interfaces.AccountService
	messages interfaces.MessageService
	jobs     interfaces.SyncJobService
}

func NewSyncHandler(accounts interfaces.AccountService, messages interfaces.MessageService, jobs interfaces.SyncJobService) *SyncHandler {
	return &SyncHandler{
		accounts: accounts,
		messages: messages,
		jobs:     jobs,
	}
}

type SyncResponse struct {
	AccountID    string            `json:"accountId"`
	Folder       string            `json:"folder"`
	Synced       int               `json:"synced"`
	LastSyncedAt *time.Time        `json:"lastSyncedAt"`
	Messages     []*models.Message `json:"messages"`
}

// Sync runs a locked sync of one folder.
func (h *SyncHandler) Sync() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.Sync")
		defer span.Finish()
		tracing.TagComponentRest(span)

		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}
		folder := c.Query("folder")
		tracing.TagFolder(span, folder)

		account, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}

		messages, err := h.jobs.SyncAccount(ctx, account, folder, limit)
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		if messages == nil {
			messages = []*models.Message{}
		}

		c.JSON(http.StatusOK, SyncResponse{
			AccountID:    account.ID,
			Folder:       folder,
			Synced:       len(messages),
			LastSyncedAt: account.LastSyncedAt,
			Messages:     messages,
		})
	}
}

func (h *SyncHandler) Folders() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.Folders")
		defer span.Finish()
		tracing.TagComponentRest(span)

		account, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}

		folders, err := h.messages.GetFolders(ctx, account)
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, folders)
	}
}

func (h *SyncHandler) Count() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.Count")
		defer span.Finish()
		tracing.TagComponentRest(span)

		account, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}

		count, err := h.messages.GetMessageCount(ctx, account, c.Query("folder"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, count)
	}
}

// Messages lists stored messages, newest first.
func (h *SyncHandler) Messages() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.Messages")
		defer span.Finish()
		tracing.TagComponentRest(span)

		limit, err := queryInt(c, "limit", defaultPageSize)
		if err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}
		if limit <= 0 || limit > maxPageSize {
			limit = defaultPageSize
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}
		seen, err := queryBool(c, "seen")
		if err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}
		flagged, err := queryBool(c, "flagged")
		if err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}

		account, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}

		messages, err := h.messages.ListMessages(ctx, account.ID, dto.MessageFilter{
			Seen:    seen,
			Flagged: flagged,
			Limit:   limit,
			Offset:  offset,
		})
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		if messages == nil {
			messages = []*models.Message{}
		}
		c.JSON(http.StatusOK, messages)
	}
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// queryBool returns nil when the parameter is absent.
func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.Errorf("%s must be a boolean", name)
	}
	return &v, nil
}
