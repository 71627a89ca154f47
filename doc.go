// Package session implements the client-side session core for the package
// tracking portal: credential gateway, session state machine, role-based
// route guards, and profile hydration.
//
// Session lifecycle:
//   - Store owns the {user, token, pendingLogin} triple. A successful login
//     (or 2FA completion) persists the token and the minimal user record to
//     durable storage and triggers a best-effort profile hydration. A 2FA
//     challenge never mutates session state; callers opt into the pending
//     login explicitly via StartPendingLogin.
//   - Pending logins live in volatile storage only, so a half-completed 2FA
//     flow cannot be resumed across a full restart.
//   - MockLogin is a deliberate degraded-mode entry point. The Store never
//     invokes it on its own; callers decide based on error classification
//     (IsTransportError) whether offline fallback applies.
//
// Route guards:
//   - middleware/guard evaluates one decision table for the public, admin,
//     employee, and client route trees. Unauthenticated requests are sent to
//     the login route with the original URL preserved in a cookie so a later
//     login can return the user to their intended destination.
//
// Activity sinks:
//   - ActivitySink receives login, challenge, 2FA, mock-login, and logout
//     events. Sinks run best-effort (errors are logged) so telemetry never
//     blocks authentication.
package session
