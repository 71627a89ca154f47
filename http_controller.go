package session

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

type AuthControllerRoutes struct {
	Login    string
	TwoFA    string
	Logout   string
	Register string
	Recovery string
}

type AuthControllerViews struct {
	Login    string
	TwoFA    string
	Register string
	Recovery string
}

// AuthController wires the auth screens to the session Store. It owns the
// policies the Store deliberately leaves to callers: starting a pending
// login on a 2FA challenge, returning the user to their intended
// destination, and falling back to mock mode when the service is
// unreachable (decided by error classification, never by message content).
type AuthController struct {
	Debug            bool
	Logger           Logger
	Store            *Store
	Gateway          Gateway
	Routes           *AuthControllerRoutes
	Views            *AuthControllerViews
	RejectedRouteKey string
	// RedirectDefault overrides the role home as the post-login destination
	// when no rejected route was preserved.
	RedirectDefault string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerStore(store *Store) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

func WithControllerGateway(gateway Gateway) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Gateway = gateway
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key := cfg.GetRejectedRouteKey(); key != "" {
			c.RejectedRouteKey = key
		}
		c.RedirectDefault = cfg.GetRejectedRouteDefault()
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:           defLogger{},
		RejectedRouteKey: DefaultRejectedRouteKey,
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			TwoFA:    "/auth/2fa",
			Logout:   "/auth/logout",
			Register: "/auth/crear",
			Recovery: "/auth/recuperar",
		},
		Views: &AuthControllerViews{
			Login:    "auth/login",
			TwoFA:    "auth/2fa",
			Register: "auth/register",
			Recovery: "auth/recovery",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Store == nil {
		panic("Missing session store in auth controller...")
	}

	if c.Gateway == nil {
		panic("Missing credential gateway in auth controller...")
	}

	return c
}

// RegisterSessionRoutes mounts the auth screens on the app router.
func RegisterSessionRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.TwoFA, controller.TwoFAShow).
		SetName("twofa.get")
	app.Post(controller.Routes.TwoFA, controller.TwoFAPost).
		SetName("twofa.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Recovery, controller.RecoveryShow).
		SetName("password-recovery.get")
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(6, 100),
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Login, router.ViewContext{
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": formatValidationErrors(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	creds := Credentials{Email: payload.Email, Password: payload.Password}

	result, err := a.Store.Login(ctx.Context(), creds)
	if err != nil {
		if IsTransportError(err) {
			return a.mockFallback(ctx, payload.Email)
		}

		return ctx.Render(a.Views.Login, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"authentication": err.Error()},
		})
	}

	if result.Challenge() {
		a.Store.StartPendingLogin(ctx.Context(), creds, result.ID)
		return ctx.Redirect(a.Routes.TwoFA, router.StatusSeeOther)
	}

	if result.Authenticated() {
		return ctx.Redirect(a.postLoginTarget(ctx), router.StatusSeeOther)
	}

	// empty response: neither token nor challenge, surface as a rejection
	return ctx.Render(a.Views.Login, router.ViewContext{
		"record": payload,
		"errors": map[string]string{"authentication": ErrLoginRejected.Message},
	})
}

// mockFallback enters degraded mode when the backend is unreachable.
func (a *AuthController) mockFallback(ctx router.Context, email string) error {
	fallback := &User{Email: email}
	if fallback.Email == "" {
		fallback.Email = "admin@tracker.local"
	}

	a.Store.MockLogin(ctx.Context(), fallback)
	a.Logger.Warn("backend unreachable, entering mock mode", "email", fallback.Email)

	return flash.WithError(ctx, router.ViewContext{
		"system_message": "Backend inaccesible. Entraste en modo maqueta.",
	}).Redirect(a.Store.Snapshot().Home(), fiber.StatusSeeOther)
}

func (a *AuthController) TwoFAShow(ctx router.Context) error {
	snap := a.Store.Snapshot()
	if snap.Pending == nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	qr, err := a.Gateway.QRCode(ctx.Context(), snap.Pending.UserID)
	if err != nil {
		a.Logger.Error("qr code fetch", "error", err)
		return ctx.Render(a.Views.TwoFA, router.ViewContext{
			"email":  snap.Pending.Email,
			"errors": map[string]string{"qr": err.Error()},
		})
	}

	return ctx.Render(a.Views.TwoFA, router.ViewContext{
		"email": snap.Pending.Email,
		"qr":    qr,
	})
}

// TwoFARequest payload
type TwoFARequest struct {
	Code string `form:"codigo" json:"codigo"`
}

// Validate will run validation rules
func (r TwoFARequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Code,
			validation.Required,
			validation.Length(6, 6),
			is.Digit,
		),
	)
}

func (a *AuthController) TwoFAPost(ctx router.Context) error {
	payload := new(TwoFARequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("2fa parse payload", "error", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.TwoFA, router.ViewContext{
			"errors": map[string]string{"form": err.Error()},
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.TwoFA, router.ViewContext{
			"validation": formatValidationErrors(err),
		})
	}

	result, err := a.Store.Complete2FA(ctx.Context(), payload.Code)
	if err != nil {
		if IsStateError(err) {
			return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
		}

		return ctx.Render(a.Views.TwoFA, router.ViewContext{
			"errors": map[string]string{"code": err.Error()},
		})
	}

	if !result.Authenticated() {
		return ctx.Render(a.Views.TwoFA, router.ViewContext{
			"errors": map[string]string{"code": "Código inválido. Intenta nuevamente."},
		})
	}

	return ctx.Redirect(a.postLoginTarget(ctx), router.StatusSeeOther)
}

// postLoginTarget pops the preserved route, falling back to the configured
// default or the role's home.
func (a *AuthController) postLoginTarget(ctx router.Context) string {
	def := a.RedirectDefault
	if def == "" {
		def = a.Store.Snapshot().Home()
	}
	return GetRedirect(ctx, a.RejectedRouteKey, def)
}

// TwoFACancel abandons the pending challenge and returns to the login
// screen.
func (a *AuthController) TwoFACancel(ctx router.Context) error {
	a.Store.Logout(ctx.Context())
	a.Store.ClearPendingLogin(ctx.Context())
	return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Store.Logout(ctx.Context())
	return ctx.Redirect(a.Routes.Login, router.StatusTemporaryRedirect)
}

// RecoveryShow renders the account recovery screen. The portal handles
// recovery entirely through support channels, so the page carries no form
// submission.
func (a *AuthController) RecoveryShow(ctx router.Context) error {
	return ctx.Render(a.Views.Recovery, router.ViewContext{})
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterUserMessage)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if a.Debug {
		a.Logger.Debug("registration payload: %s", print.MaybePrettyJSON(payload))
	}

	registerUser := RegisterUserHandler{gateway: a.Gateway}
	if err := registerUser.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("register user error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering user",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Cuenta creada. Inicia sesión.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func formatValidationErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = fmt.Sprintf("%v", err)
	return out
}
