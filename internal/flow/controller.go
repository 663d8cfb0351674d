package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"payflow-backend/internal/analytics"
	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
	"payflow-backend/internal/redirect"
	"payflow-backend/internal/repository"
	"payflow-backend/internal/wallet"
	"payflow-backend/pkg/logger"
	"payflow-backend/pkg/money"
)

// ConfigureCallback reports the outcome of a configure call. It runs on the
// scope's callback loop.
type ConfigureCallback func(success bool, err error)

// OptionCallback reports the selection projection after an option picker
// round trip. A nil option means no selection.
type OptionCallback func(option *models.PaymentOption)

// ResultCallback delivers the single terminal result of a confirmation
// attempt.
type ResultCallback func(result models.Result)

type phase int

const (
	phaseUnconfigured phase = iota
	phaseConfiguring
	phaseReady
	phaseConfirming
)

func (p phase) String() string {
	switch p {
	case phaseConfiguring:
		return "configuring"
	case phaseReady:
		return "ready"
	case phaseConfirming:
		return "confirming"
	default:
		return "unconfigured"
	}
}

// ControllerConfig wires a controller to its session scope and collaborators.
type ControllerConfig struct {
	SessionID string
	ReturnURL string

	Scope       *Scope
	State       *SessionState
	Initializer *Initializer
	Gateway     payments.Gateway
	Options     OptionsLauncher
	Wallet      wallet.Launcher
	Confirm     redirect.Launcher
	Preferences repository.PreferenceRepository
	Reporter    analytics.Reporter

	OnOption OptionCallback
	OnResult ResultCallback
}

// Controller drives one payment flow: load a session, track the selection,
// dispatch confirmation and deliver exactly one terminal result per attempt.
// All callbacks run serialized on the scope's callback loop; once the scope
// closes no callback is ever delivered.
type Controller struct {
	sessionID string
	returnURL string

	scope       *Scope
	state       *SessionState
	initializer *Initializer
	options     OptionsLauncher
	wallet      wallet.Launcher
	confirm     redirect.Launcher
	preferences repository.PreferenceRepository
	reporter    analytics.Reporter

	paymentProcessor redirect.Processor
	setupProcessor   redirect.Processor

	onOption OptionCallback
	onResult ResultCallback

	mu         sync.Mutex
	phase      phase
	generation uint64
}

func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		sessionID:        cfg.SessionID,
		returnURL:        cfg.ReturnURL,
		scope:            cfg.Scope,
		state:            cfg.State,
		initializer:      cfg.Initializer,
		options:          cfg.Options,
		wallet:           cfg.Wallet,
		confirm:          cfg.Confirm,
		preferences:      cfg.Preferences,
		reporter:         cfg.Reporter,
		paymentProcessor: redirect.NewPaymentProcessor(cfg.Gateway),
		setupProcessor:   redirect.NewSetupProcessor(cfg.Gateway),
		onOption:         cfg.OnOption,
		onResult:         cfg.OnResult,
	}
}

// Status reports the controller's lifecycle phase.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase.String()
}

// Configure loads a fresh session for the client secret and configuration.
// It is valid in any state: a newer call supersedes an older in-flight one,
// whose outcome is then discarded entirely. The callback is invoked exactly
// once on the scope's callback loop, unless the scope closes first, in which
// case it is never invoked.
func (c *Controller) Configure(clientSecret string, cfg models.FlowConfiguration, callback ConfigureCallback) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.phase = phaseConfiguring
	c.mu.Unlock()

	c.scope.Go("configure", func(ctx context.Context) {
		data, err := c.initializer.Load(ctx, clientSecret, cfg)

		if c.scope.Closed() {
			return
		}

		if err != nil {
			c.mu.Lock()
			if c.generation != gen {
				c.mu.Unlock()
				return
			}
			c.phase = phaseUnconfigured
			c.mu.Unlock()

			logger.Error(err, "Flow configuration failed", map[string]interface{}{"session": c.sessionID})
			c.reporter.ConfigureFinished(c.sessionID, false, err)
			c.dispatchConfigure(callback, false, err)
			return
		}

		selection := data.InitialSelection()

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		if !c.state.Replace(c.scope, data, selection) {
			c.mu.Unlock()
			return
		}
		c.phase = phaseReady
		c.mu.Unlock()

		logger.Info("Flow configured", map[string]interface{}{
			"session":       c.sessionID,
			"intent":        data.Intent.IntentID(),
			"saved_methods": len(data.SavedMethods),
			"wallet_ready":  data.WalletReady,
		})
		c.reporter.ConfigureFinished(c.sessionID, true, nil)
		c.dispatchConfigure(callback, true, nil)
	})
}

func (c *Controller) dispatchConfigure(callback ConfigureCallback, ok bool, err error) {
	if callback == nil {
		return
	}
	c.scope.Dispatch(func() { callback(ok, err) })
}

// CurrentOption returns the display projection of the current selection, or
// nil when the flow is unconfigured or nothing is selected.
func (c *Controller) CurrentOption() *models.PaymentOption {
	data, selection := c.state.Snapshot()
	if data == nil || selection == nil {
		return nil
	}
	option := selection.Option()
	return &option
}

// PresentOptions hands the option picker everything it needs to render. It
// never schedules work before a successful configure.
func (c *Controller) PresentOptions() error {
	data, selection := c.state.Snapshot()
	if data == nil {
		return newMisuseError("present_options", "configure must complete successfully first")
	}

	c.mu.Lock()
	if c.phase == phaseConfirming {
		c.mu.Unlock()
		return newMisuseError("present_options", "confirmation is in progress")
	}
	c.mu.Unlock()

	args := OptionsArgs{
		Intent:       data.Intent,
		Methods:      data.SavedMethods,
		MerchantName: data.Config.MerchantDisplayName,
		PrimaryColor: data.Config.PrimaryColor,
		WalletReady:  data.WalletReady,
		WalletLabel:  data.walletLabel(),
	}
	if pi, ok := data.PaymentIntent(); ok {
		args.FormattedTotal = money.FormatPayTotal(pi.Amount, pi.Currency)
	}
	if selection != nil {
		option := selection.Option()
		args.CurrentOption = &option
		if fresh, ok := selection.(models.NewMethodSelection); ok {
			prefill := fresh
			args.Prefill = &prefill
		}
	}

	c.reporter.OptionsPresented(c.sessionID)

	if err := c.options.Present(c.scope.Context(), args); err != nil {
		return newFailure(FailureSelection, err)
	}
	return nil
}

// Confirm starts confirmation with the current selection. With no selection
// it does nothing. The terminal result arrives through the result callback;
// Confirm itself only reports faults that prevent the attempt from starting.
func (c *Controller) Confirm() error {
	data, selection := c.state.Snapshot()
	if data == nil {
		return newMisuseError("confirm", "configure must complete successfully first")
	}

	if selection == nil {
		logger.Info("Confirm called with no selection, nothing to do", map[string]interface{}{"session": c.sessionID})
		return nil
	}

	c.mu.Lock()
	if c.phase == phaseConfirming {
		c.mu.Unlock()
		return newMisuseError("confirm", "confirmation is already in progress")
	}
	c.mu.Unlock()

	switch sel := selection.(type) {
	case models.WalletSelection:
		return c.confirmWallet(data)
	case models.SavedMethodSelection:
		c.beginConfirming("saved")
		c.startConfirmation(confirmParamsForSaved(data, sel, c.returnURL))
		return nil
	case models.NewMethodSelection:
		c.beginConfirming("new")
		c.startConfirmation(confirmParamsForNew(data, sel, c.returnURL))
		return nil
	default:
		return newFailure(FailureConfirmation, fmt.Errorf("unsupported selection type %T", selection))
	}
}

func (c *Controller) confirmWallet(data *SessionData) error {
	pi, ok := data.PaymentIntent()
	if !ok {
		return newMisuseError("confirm", "the wallet can only confirm payment intents")
	}
	if data.Config.Wallet == nil {
		return newFailure(FailureConfirmation, errors.New("wallet is not configured for this session"))
	}

	c.beginConfirming("wallet")

	args := wallet.Args{
		Intent:         pi,
		Config:         *data.Config.Wallet,
		PrimaryColor:   data.Config.PrimaryColor,
		FormattedTotal: money.FormatPayTotal(pi.Amount, pi.Currency),
	}
	if err := c.wallet.Launch(c.scope.Context(), args); err != nil {
		c.reporter.WalletFailure(c.sessionID, err)
		c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, err)})
	}
	return nil
}

func (c *Controller) beginConfirming(selectionKind string) {
	c.mu.Lock()
	c.phase = phaseConfirming
	c.mu.Unlock()

	c.reporter.ConfirmStarted(c.sessionID, selectionKind)
}

func (c *Controller) startConfirmation(params payments.ConfirmParams) {
	c.scope.Go("confirm", func(ctx context.Context) {
		if err := c.confirm.Start(ctx, params, c.OnAuthRedirectResult); err != nil {
			c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, err)})
		}
	})
}

func confirmParamsForSaved(data *SessionData, sel models.SavedMethodSelection, returnURL string) payments.ConfirmParams {
	return payments.ConfirmParams{
		ClientSecret:    data.ClientSecret,
		PaymentMethodID: sel.Method.ID,
		ReturnURL:       returnURL,
	}
}

func confirmParamsForNew(data *SessionData, sel models.NewMethodSelection, returnURL string) payments.ConfirmParams {
	card := sel.Card
	return payments.ConfirmParams{
		ClientSecret:  data.ClientSecret,
		NewCard:       &card,
		SaveForFuture: sel.SaveForFuture,
		ReturnURL:     returnURL,
	}
}

// OnPaymentOptionResult folds the picker's outcome into the session. Failure
// and cancel keep the previous selection and re-report it; an unrecognized
// outcome conservatively clears the selection.
func (c *Controller) OnPaymentOptionResult(res models.OptionResult) {
	data, current := c.state.Snapshot()
	if data == nil {
		logger.Warn("Option result received before configuration, ignoring", map[string]interface{}{"session": c.sessionID})
		return
	}

	switch r := res.(type) {
	case models.OptionSucceeded:
		if r.Selection == nil {
			c.state.ClearSelection(c.scope)
			c.dispatchOption(nil)
			return
		}
		if !c.state.SetSelection(c.scope, r.Selection) {
			return
		}
		c.dispatchOption(r.Selection)
	case models.OptionFailed:
		logger.Warn("Option picker failed, keeping selection", map[string]interface{}{
			"session": c.sessionID,
			"error":   fmt.Sprint(r.Err),
		})
		c.dispatchOption(current)
	case models.OptionCanceled:
		c.dispatchOption(current)
	default:
		c.state.ClearSelection(c.scope)
		c.dispatchOption(nil)
	}
}

func (c *Controller) dispatchOption(selection models.PaymentSelection) {
	if c.onOption == nil {
		return
	}

	var option *models.PaymentOption
	if selection != nil {
		o := selection.Option()
		option = &o
	}
	c.scope.Dispatch(func() { c.onOption(option) })
}

// OnWalletResult folds the wallet round trip into the flow. A completed
// wallet adopts the produced instrument and proceeds straight into
// confirmation; a cancel ends the attempt as canceled, which is not a
// failure.
func (c *Controller) OnWalletResult(res wallet.Result) {
	switch r := res.(type) {
	case wallet.Completed:
		data := c.state.Data()
		if data == nil {
			err := errors.New("wallet completed but the session is gone")
			c.reporter.WalletFailure(c.sessionID, err)
			c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, err)})
			return
		}
		selection := models.SavedMethodSelection{Method: r.Method}
		c.state.SetSelection(c.scope, selection)
		c.startConfirmation(confirmParamsForSaved(data, selection, c.returnURL))
	case wallet.Failed:
		c.reporter.WalletFailure(c.sessionID, r.Err)
		c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, r.Err)})
	case wallet.Canceled:
		c.finish(models.ResultCanceled{})
	default:
		err := fmt.Errorf("wallet returned an unrecognized result %T", res)
		c.reporter.WalletFailure(c.sessionID, err)
		c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, err)})
	}
}

// OnAuthRedirectResult resolves a confirmation attempt from the raw
// authentication outcome. Processing happens off the caller's goroutine; any
// processing error becomes a failed result rather than propagating.
func (c *Controller) OnAuthRedirectResult(raw redirect.RawResult) {
	c.scope.Go("redirect-result", func(ctx context.Context) {
		data := c.state.Data()
		if data == nil {
			c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, errors.New("no session to resolve the result against"))})
			return
		}

		processor := c.paymentProcessor
		if data.Intent.Kind() == models.IntentKindSetup {
			processor = c.setupProcessor
		}

		processed, err := processor.Process(ctx, raw)
		if err != nil {
			c.finish(models.ResultFailed{Err: newFailure(FailureConfirmation, err)})
			return
		}

		c.finish(Interpret(processed))
	})
}

// finish delivers exactly one terminal result and returns the controller to
// ready. Completed outcomes also persist the selection hint.
func (c *Controller) finish(result models.Result) {
	c.mu.Lock()
	c.phase = phaseReady
	c.mu.Unlock()

	_, selection := c.state.Snapshot()

	if _, completed := result.(models.ResultCompleted); completed {
		c.persistHint()
	}

	c.reporter.FlowOutcome(c.sessionID, models.SelectionKindOf(selection), result)

	if c.onResult != nil {
		c.scope.Dispatch(func() { c.onResult(result) })
	}
}

// persistHint records the selection for the next session. Best effort: the
// flow result never waits on it.
func (c *Controller) persistHint() {
	data, selection := c.state.Snapshot()
	if data == nil {
		return
	}

	hint := models.HintFor(selection)
	if hint.Kind == models.SavedSelectionNone {
		return
	}
	customerKey := data.Config.CustomerKey()

	go func() {
		if err := c.preferences.SetSavedSelection(customerKey, hint); err != nil {
			logger.Error(err, "Failed to persist selection hint", map[string]interface{}{"session": c.sessionID})
		}
	}()
}
