package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	apierrors "github.com/customeros/mailsync/api/errors"
	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

type AccountsHandler struct {
	accounts  interfaces.AccountService
	jobs      interfaces.SyncJobService
	publisher interfaces.EventPublisher
}

func NewAccountsHandler(accounts interfaces.AccountService, jobs interfaces.SyncJobService, publisher interfaces.EventPublisher) *AccountsHandler {
	return &AccountsHandler{
		accounts:  accounts,
		jobs:      jobs,
		publisher: publisher,
	}
}

type ConnectionTestResponse struct {
	Healthy bool            `json:"healthy"`
	Account *models.Account `json:"account"`
}

func (h *AccountsHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.Create")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var input dto.CreateAccountInput
		if err := c.ShouldBindJSON(&input); err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}

		account, err := h.accounts.CreateAccount(ctx, input)
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		tracing.TagAccount(span, account.ID)

		if h.publisher != nil {
			if err := h.publisher.PublishEvent(ctx, account.ID, enum.MAIL_ACCOUNT, dto.EventAccountCreated, account); err != nil {
				// the account exists; a lost event must not fail the request
				tracing.TraceErr(span, err)
			}
		}

		c.JSON(http.StatusCreated, account)
	}
}

func (h *AccountsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.List")
		defer span.Finish()
		tracing.TagComponentRest(span)

		accounts, err := h.accounts.ListAccounts(ctx)
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		if accounts == nil {
			accounts = []*models.Account{}
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func (h *AccountsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.Get")
		defer span.Finish()
		tracing.TagComponentRest(span)

		account, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func (h *AccountsHandler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.Update")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var input dto.UpdateAccountInput
		if err := c.ShouldBindJSON(&input); err != nil {
			apierrors.BadRequest(c, span, err)
			return
		}

		existing, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		if input.IsEmpty() {
			c.JSON(http.StatusOK, existing)
			return
		}

		account, err := h.accounts.UpdateAccount(ctx, existing, input)
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func (h *AccountsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.Delete")
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		if err := h.accounts.DeleteAccount(ctx, id); err != nil {
			apierrors.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "account deleted", "id": id})
	}
}

// TestConnection probes the stored parameters and reports health. A failed
// probe is a normal 200 answer with healthy=false.
func (h *AccountsHandler) TestConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.TestConnection")
		defer span.Finish()
		tracing.TagComponentRest(span)

		account, err := h.accounts.GetAccount(ctx, c.Param("id"))
		if err != nil {
			apierrors.Respond(c, span, err)
			return
		}

		healthy := h.jobs.CheckConnection(ctx, account)
		c.JSON(http.StatusOK, ConnectionTestResponse{Healthy: healthy, Account: account})
	}
}
