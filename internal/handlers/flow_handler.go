package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"

	"payflow-backend/internal/analytics"
	"payflow-backend/internal/config"
	"payflow-backend/internal/flow"
	"payflow-backend/internal/middleware"
	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
	"payflow-backend/internal/payments/stripe"
	"payflow-backend/internal/redirect"
	"payflow-backend/internal/repository"
	"payflow-backend/internal/wallet"
	"payflow-backend/pkg/validator"
)

// FlowHandler exposes payment flow sessions over HTTP. Each session gets its
// own scope and controller; the client drives the flow through these routes
// and collects callbacks from the session's event mailbox.
type FlowHandler struct {
	cfg         *config.Config
	gateway     payments.Gateway
	preferences repository.PreferenceRepository
	walletCheck wallet.ReadinessChecker
	reporter    analytics.Reporter
	registry    *flow.SessionRegistry
	store       *SessionStore

	baseCtx context.Context
	ttl     time.Duration
}

func NewFlowHandler(
	ctx context.Context,
	cfg *config.Config,
	gateway payments.Gateway,
	preferences repository.PreferenceRepository,
	walletCheck wallet.ReadinessChecker,
	reporter analytics.Reporter,
	registry *flow.SessionRegistry,
	store *SessionStore,
) *FlowHandler {
	return &FlowHandler{
		cfg:         cfg,
		gateway:     gateway,
		preferences: preferences,
		walletCheck: walletCheck,
		reporter:    reporter,
		registry:    registry,
		store:       store,
		baseCtx:     ctx,
		ttl:         time.Duration(cfg.SessionTTLMinutes) * time.Minute,
	}
}

// Create opens a fresh flow session and returns its identity and bearer token.
func (h *FlowHandler) Create(c *gin.Context) {
	id := "fs_" + xid.New().String()

	scope := flow.NewScope(h.baseCtx)
	state := h.registry.Acquire(id)
	box := &mailbox{}

	session := &flowSession{
		id:      id,
		scope:   scope,
		state:   state,
		mailbox: box,
	}

	session.controller = flow.NewController(flow.ControllerConfig{
		SessionID:   id,
		ReturnURL:   h.cfg.ReturnURL,
		Scope:       scope,
		State:       state,
		Initializer: flow.NewInitializer(h.gateway, h.preferences, h.walletCheck),
		Gateway:     h.gateway,
		Options:     &mailboxOptionsLauncher{box: box},
		Wallet:      &mailboxWalletLauncher{box: box},
		Confirm: redirect.NewGatewayLauncher(h.gateway, func(url string) {
			box.push(eventRedirect, gin.H{"url": url})
		}),
		Preferences: h.preferences,
		Reporter:    h.reporter,
		OnOption: func(option *models.PaymentOption) {
			box.push(eventOption, optionData(option))
		},
		OnResult: func(result models.Result) {
			box.push(eventResult, resultData(result))
		},
	})

	scope.OnClose(func() {
		h.registry.Release(id)
		h.store.remove(id)
	})
	h.store.put(session)

	token, err := middleware.IssueSessionToken(h.cfg.JWTSecret, id, h.ttl)
	if err != nil {
		scope.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": id,
		"token":      token,
		"expires_in": int(h.ttl.Seconds()),
	})
}

func (h *FlowHandler) session(c *gin.Context) (*flowSession, bool) {
	session, ok := h.store.get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return session, true
}

type customerPayload struct {
	ID           string `json:"id" binding:"required"`
	EphemeralKey string `json:"ephemeral_key" binding:"required"`
}

type walletPayload struct {
	Environment string `json:"environment" binding:"omitempty,oneof=test production"`
	CountryCode string `json:"country_code" binding:"required,country_code"`
	Label       string `json:"label" binding:"max=64"`
}

type configureRequest struct {
	ClientSecret        string           `json:"client_secret" binding:"required,client_secret"`
	MerchantDisplayName string           `json:"merchant_display_name" binding:"required,max=128"`
	PrimaryColor        string           `json:"primary_color" binding:"omitempty,hex_color"`
	Customer            *customerPayload `json:"customer"`
	Wallet              *walletPayload   `json:"wallet"`
}

// Configure loads the session against an intent. The outcome arrives in the
// mailbox as a "configured" event.
func (h *FlowHandler) Configure(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Customer != nil && !stripe.IsEphemeralKey(req.Customer.EphemeralKey) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "customer ephemeral key is not valid"})
		return
	}

	flowCfg := models.FlowConfiguration{
		MerchantDisplayName: validator.SanitizeString(validator.NormalizeSpaces(req.MerchantDisplayName)),
		PrimaryColor:        req.PrimaryColor,
	}
	if req.Customer != nil {
		flowCfg.Customer = &models.CustomerConfig{
			ID:           req.Customer.ID,
			EphemeralKey: req.Customer.EphemeralKey,
		}
	}
	if req.Wallet != nil && h.cfg.EnableWallet {
		environment := req.Wallet.Environment
		if environment == "" {
			environment = h.cfg.WalletEnvironment
		}
		label := req.Wallet.Label
		if label == "" {
			label = h.cfg.WalletLabel
		}
		flowCfg.Wallet = &models.WalletConfig{
			Environment: models.WalletEnvironment(environment),
			CountryCode: req.Wallet.CountryCode,
			Label:       validator.SanitizeString(label),
		}
	}

	box := session.mailbox
	session.controller.Configure(req.ClientSecret, flowCfg, func(success bool, err error) {
		data := gin.H{"success": success}
		if err != nil {
			data["error"] = err.Error()
		}
		box.push(eventConfigured, data)
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "configuring"})
}

// CurrentOption reports the selection projection and lifecycle phase.
func (h *FlowHandler) CurrentOption(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	data := optionData(session.controller.CurrentOption())
	data["status"] = session.controller.Status()
	c.JSON(http.StatusOK, data)
}

// PresentOptions schedules the option picker payload into the mailbox.
func (h *FlowHandler) PresentOptions(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.controller.PresentOptions(); err != nil {
		status := http.StatusInternalServerError
		if flow.IsMisuse(err) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "presenting"})
}

type cardPayload struct {
	Number   string `json:"number" binding:"required,card_number"`
	ExpMonth int    `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear  int    `json:"exp_year" binding:"required,min=2020"`
	CVC      string `json:"cvc" binding:"required,min=3,max=4"`
	Brand    string `json:"brand"`
}

type selectionPayload struct {
	Kind          string       `json:"kind" binding:"required,oneof=saved new wallet"`
	MethodID      string       `json:"method_id"`
	Card          *cardPayload `json:"card"`
	SaveForFuture bool         `json:"save_for_future"`
}

type optionResultRequest struct {
	Status    string            `json:"status" binding:"required,oneof=succeeded failed canceled"`
	Selection *selectionPayload `json:"selection"`
	Error     string            `json:"error"`
}

func (h *FlowHandler) decodeSelection(session *flowSession, payload *selectionPayload) (models.PaymentSelection, error) {
	if payload == nil {
		return nil, nil
	}

	switch payload.Kind {
	case "saved":
		data := session.state.Data()
		if data == nil {
			return nil, errors.New("session is not configured")
		}
		for _, method := range data.SavedMethods {
			if method.ID == payload.MethodID {
				return models.SavedMethodSelection{Method: method}, nil
			}
		}
		return nil, errors.New("payment method is not attached to this session")
	case "new":
		if payload.Card == nil {
			return nil, errors.New("card details are required for a new payment method")
		}
		return models.NewMethodSelection{
			Card: models.NewCardParams{
				Number:   payload.Card.Number,
				ExpMonth: payload.Card.ExpMonth,
				ExpYear:  payload.Card.ExpYear,
				CVC:      payload.Card.CVC,
			},
			Brand:         models.ParseCardBrand(payload.Card.Brand),
			SaveForFuture: payload.SaveForFuture,
		}, nil
	case "wallet":
		label := ""
		if data := session.state.Data(); data != nil && data.Config.Wallet != nil {
			label = data.Config.Wallet.Label
		}
		return models.WalletSelection{Label: label}, nil
	default:
		return nil, errors.New("unrecognized selection kind")
	}
}

// OptionResult folds the native picker's outcome back into the flow.
func (h *FlowHandler) OptionResult(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req optionResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var result models.OptionResult
	switch req.Status {
	case "succeeded":
		selection, err := h.decodeSelection(session, req.Selection)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		result = models.OptionSucceeded{Selection: selection}
	case "failed":
		message := req.Error
		if message == "" {
			message = "option picker failed"
		}
		result = models.OptionFailed{Err: errors.New(message)}
	case "canceled":
		result = models.OptionCanceled{}
	}

	session.controller.OnPaymentOptionResult(result)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Confirm starts confirmation with the current selection. The terminal result
// arrives in the mailbox as a "result" event.
func (h *FlowHandler) Confirm(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.controller.Confirm(); err != nil {
		status := http.StatusInternalServerError
		switch {
		case flow.IsMisuse(err):
			status = http.StatusConflict
		case flow.FailureKindOf(err) != "":
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": session.controller.Status()})
}

type walletMethodCardPayload struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

type walletMethodPayload struct {
	ID   string                   `json:"id" binding:"required"`
	Card *walletMethodCardPayload `json:"card"`
}

type walletResultRequest struct {
	Status  string               `json:"status" binding:"required,oneof=completed failed canceled"`
	Method  *walletMethodPayload `json:"method"`
	Message string               `json:"message"`
}

// WalletResult folds the device wallet's outcome back into the flow.
func (h *FlowHandler) WalletResult(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req walletResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var method *models.PaymentMethod
	if req.Method != nil {
		method = &models.PaymentMethod{
			ID:   req.Method.ID,
			Type: "card",
		}
		if req.Method.Card != nil {
			method.Card = &models.CardDetails{
				Brand:    models.ParseCardBrand(req.Method.Card.Brand),
				Last4:    req.Method.Card.Last4,
				ExpMonth: req.Method.Card.ExpMonth,
				ExpYear:  req.Method.Card.ExpYear,
			}
		}
	}

	session.controller.OnWalletResult(wallet.DecodeResult(req.Status, method, req.Message))
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type redirectResultRequest struct {
	ClientSecret string `json:"client_secret" binding:"required,client_secret"`
	Outcome      string `json:"outcome" binding:"required"`
	Error        string `json:"error"`
}

// RedirectResult resolves a confirmation attempt from an authentication hop.
func (h *FlowHandler) RedirectResult(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req redirectResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw := redirect.RawResult{
		ClientSecret: req.ClientSecret,
		Outcome:      redirect.ParseOutcome(req.Outcome),
	}
	if req.Error != "" {
		raw.Err = errors.New(req.Error)
	}

	session.controller.OnAuthRedirectResult(raw)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Events drains the session mailbox. Every event is delivered exactly once.
func (h *FlowHandler) Events(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": session.mailbox.drain()})
}

// Delete closes the session. Pending callbacks are abandoned, never delivered.
func (h *FlowHandler) Delete(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	session.scope.Close()
	c.Status(http.StatusNoContent)
}
