package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeServiceUnreachable marks transport failures: the request never
	// reached the backend or the response was unparseable.
	TextCodeServiceUnreachable = "SERVICE_UNREACHABLE"
	// TextCodeLoginRejected marks a backend rejection of a login attempt.
	TextCodeLoginRejected = "LOGIN_REJECTED"
	// TextCodeRegistrationRejected marks a backend rejection of a registration.
	TextCodeRegistrationRejected = "REGISTRATION_REJECTED"
	// TextCodeQRCodeRejected marks a backend rejection of a QR code fetch.
	TextCodeQRCodeRejected = "QRCODE_REJECTED"
	// TextCodeProfileRejected marks a backend rejection of a profile fetch.
	TextCodeProfileRejected = "PROFILE_REJECTED"
	// TextCodeNoPendingLogin marks a 2FA completion attempted with no
	// outstanding challenge.
	TextCodeNoPendingLogin = "NO_PENDING_LOGIN"
)

// ErrServiceUnreachable is the transport error: no response, or a response
// no envelope could be decoded from.
var ErrServiceUnreachable = goerrors.New("servicio inaccesible", goerrors.CategoryOperation).
	WithTextCode(TextCodeServiceUnreachable)

// ErrLoginRejected is the login rejection with the legacy fallback message,
// used when the backend provides none.
var ErrLoginRejected = goerrors.New("Credenciales inválidas o servicio inaccesible.", goerrors.CategoryAuth).
	WithTextCode(TextCodeLoginRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrRegistrationRejected is the registration rejection fallback.
var ErrRegistrationRejected = goerrors.New("No se pudo registrar. Intenta más tarde.", goerrors.CategoryAuth).
	WithTextCode(TextCodeRegistrationRejected).
	WithCode(goerrors.CodeBadRequest)

// ErrQRCodeRejected is the QR code fetch rejection fallback.
var ErrQRCodeRejected = goerrors.New("No se pudo obtener el código QR.", goerrors.CategoryAuth).
	WithTextCode(TextCodeQRCodeRejected).
	WithCode(goerrors.CodeBadRequest)

// ErrProfileRejected is the profile fetch rejection fallback. Hydration
// swallows it; it surfaces only in logs.
var ErrProfileRejected = goerrors.New("No se pudo obtener el perfil.", goerrors.CategoryAuth).
	WithTextCode(TextCodeProfileRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoPendingLogin is returned when Complete2FA runs with no outstanding
// challenge. It fails fast, before any network call.
var ErrNoPendingLogin = goerrors.New("no hay un inicio de sesión pendiente", goerrors.CategoryConflict).
	WithTextCode(TextCodeNoPendingLogin).
	WithCode(goerrors.CodeConflict)

// IsTransportError reports whether err classifies as "service unreachable".
// Offline fallback decisions must use this, never message sniffing.
func IsTransportError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeServiceUnreachable
}

// IsRejectedError reports whether the backend actively rejected the request
// (non-OK status or success=false envelope).
func IsRejectedError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth
}

// IsStateError reports whether err is an invalid-state failure such as
// completing 2FA with no pending login.
func IsStateError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeNoPendingLogin
}

// rejected clones base with the backend-provided message when present.
func rejected(base *goerrors.Error, message string, status int) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if message != "" {
		clone.Message = message
	}
	clone.Source = base
	if status > 0 {
		return clone.WithMetadata(map[string]any{"status": status})
	}
	return clone
}
