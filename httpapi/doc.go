// Package httpapi exposes a [regAuth.Engine] over JSON HTTP using a chi router.
//
// Routes:
//
//	POST /register          201 tokens
//	POST /login             200 tokens, or 200 {mfaRequired, userId, maskedEmail}
//	POST /verify-otp        200 tokens
//	POST /resend-otp        200
//	POST /logout            200, Bearer access token plus optional {refreshToken}
//	POST /refresh-token     200 rotated tokens
//	POST /password-strength 200 checklist
//	GET  /mfa-status        protected
//	POST /enable-mfa        protected
//	POST /disable-mfa       protected, {password}
//	GET  /healthz
//	GET  /metrics           when Options.Metrics is set
//
// Every failure is answered with {"error": code, "message": text}. Lockouts and rate
// limits add a Retry-After header and retryAfterSeconds.
package httpapi
