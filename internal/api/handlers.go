package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"socialapi/internal/metrics"
	"socialapi/internal/models"
	"socialapi/internal/service/account"
	"socialapi/internal/storage"
)

const (
	minPasswordLength = 4
	maxMessageLength  = 255
)

// AccountService is the account behaviour the handlers depend on.
type AccountService interface {
	Register(ctx context.Context, candidate models.Account) (*models.Account, error)
	Authenticate(ctx context.Context, candidate models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	ListMessagesFor(ctx context.Context, accountID int64) ([]models.Message, error)
}

// MessageService is the message behaviour the handlers depend on.
type MessageService interface {
	Create(ctx context.Context, msg models.Message) (*models.Message, error)
	List(ctx context.Context) ([]models.Message, error)
	FindByID(ctx context.Context, id int64) (*models.Message, error)
	Delete(ctx context.Context, id int64) (*models.Message, error)
	UpdateText(ctx context.Context, id int64, text string) (*models.Message, error)
}

// Pinger reports database liveness for the health route.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler wires HTTP routes to the account and message services.
type Handler struct {
	accounts AccountService
	messages MessageService
	db       Pinger
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

// NewHandler constructs a Handler instance. db and m may be nil.
func NewHandler(accounts AccountService, messages MessageService, db Pinger, logger logrus.FieldLogger, m *metrics.Metrics) *Handler {
	return &Handler{
		accounts: accounts,
		messages: messages,
		db:       db,
		log:      logger,
		metrics:  m,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine, metricsPath string) {
	router.Use(h.requestLogger(), h.requestMetrics())

	router.POST("/register", h.registerAccount)
	router.POST("/login", h.loginAccount)
	router.GET("/messages", h.listMessages)
	router.POST("/messages", h.createMessage)
	router.GET("/messages/:message_id", h.getMessage)
	router.DELETE("/messages/:message_id", h.deleteMessage)
	router.PATCH("/messages/:message_id", h.updateMessage)
	router.GET("/accounts/:account_id/messages", h.listAccountMessages)
	router.GET("/healthz", h.health)
	if h.metrics != nil && metricsPath != "" {
		router.GET(metricsPath, gin.WrapH(h.metrics.Handler()))
	}
}

// Account register&login interface
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func validCredentials(username, password string) bool {
	if strings.TrimSpace(username) == "" {
		return false
	}
	// measured on the raw value
	return utf8.RuneCountInString(password) >= minPasswordLength
}

func (h *Handler) registerAccount(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if !validCredentials(req.Username, req.Password) {
		c.Status(http.StatusBadRequest)
		return
	}
	created, err := h.accounts.Register(c.Request.Context(), models.Account{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if !errors.Is(err, account.ErrUsernameTaken) {
			h.log.WithError(err).Warn("register account failed")
		}
		c.Status(http.StatusBadRequest)
		return
	}
	if h.metrics != nil {
		h.metrics.AccountsRegistered.Inc()
	}
	c.JSON(http.StatusOK, created)
}

func (h *Handler) loginAccount(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	acct, err := h.accounts.Authenticate(c.Request.Context(), models.Account{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			if h.metrics != nil {
				h.metrics.LoginFailures.Inc()
			}
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, acct)
}

// Message interface
type createMessageRequest struct {
	PostedBy        int64  `json:"posted_by"`
	Text            string `json:"message_text"`
	TimePostedEpoch int64  `json:"time_posted_epoch"`
}

type updateMessageRequest struct {
	Text string `json:"message_text"`
}

func validMessageText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return utf8.RuneCountInString(text) <= maxMessageLength
}

func (h *Handler) createMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if !validMessageText(req.Text) {
		c.Status(http.StatusBadRequest)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.accounts.FindByID(ctx, req.PostedBy); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	created, err := h.messages.Create(ctx, models.Message{
		PostedBy:        req.PostedBy,
		Text:            req.Text,
		TimePostedEpoch: req.TimePostedEpoch,
	})
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if h.metrics != nil {
		h.metrics.MessagesCreated.Inc()
	}
	c.JSON(http.StatusOK, created)
}

func (h *Handler) listMessages(c *gin.Context) {
	messages, err := h.messages.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list messages failed"})
		return
	}
	c.JSON(http.StatusOK, nonNil(messages))
}

func (h *Handler) getMessage(c *gin.Context) {
	id, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	msg, err := h.messages.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.Status(http.StatusOK)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get message failed"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) deleteMessage(c *gin.Context) {
	id, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	msg, err := h.messages.Delete(c.Request.Context(), id)
	if err != nil {
		// deleting a missing message is a successful no-op
		if errors.Is(err, storage.ErrNotFound) {
			c.Status(http.StatusOK)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete message failed"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) updateMessage(c *gin.Context) {
	id, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if !validMessageText(req.Text) {
		c.Status(http.StatusBadRequest)
		return
	}
	msg, err := h.messages.UpdateText(c.Request.Context(), id, req.Text)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) listAccountMessages(c *gin.Context) {
	id, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	messages, err := h.accounts.ListMessagesFor(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list account messages failed"})
		return
	}
	c.JSON(http.StatusOK, nonNil(messages))
}

func (h *Handler) health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			h.log.WithError(err).Error("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func nonNil(messages []models.Message) []models.Message {
	if messages == nil {
		return make([]models.Message, 0)
	}
	return messages
}
