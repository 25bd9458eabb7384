package flows

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/regAuth/password"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	maxFullNameLen = 100
	maxEmailLen    = 254
)

type RegisterRequest struct {
	Username string
	FullName string
	Email    string
	Password string
}

type NewAccountInput struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	MFAEnabled   bool
}

type RegisterResult struct {
	Account Account
	Tokens  Tokens
}

type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterFailure   int
	RegisterDuplicate int
}

type RegisterEvents struct {
	RegisterSuccess   string
	RegisterFailure   string
	RegisterDuplicate string
}

type RegisterErrors struct {
	EngineNotReady     error
	InvalidInput       error
	AccountExists      error
	HashingFailure     error
	BackendUnavailable error
}

type RegisterDeps struct {
	DefaultMFAEnabled bool

	PolicyError    func(password.StrengthReport) error
	HashPassword   func(string) (string, error)
	CreateAccount  func(context.Context, NewAccountInput) (Account, error)
	IsDuplicate    func(error) bool
	IssueTokens    func(context.Context, Account) (Tokens, error)
	MetricInc      func(int)
	EmitAudit      AuditFunc
	PasswordTooBig error

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// NormalizeRegisterRequest trims fields and lower-cases the email.
func NormalizeRegisterRequest(req RegisterRequest) RegisterRequest {
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	return req
}

// ValidateRegisterInput checks every field except password strength and returns the
// name of the first invalid field.
func ValidateRegisterInput(req RegisterRequest) (string, bool) {
	n := utf8.RuneCountInString(req.Username)
	if n < minUsernameLen || n > maxUsernameLen {
		return "username", false
	}
	for _, r := range req.Username {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-') {
			return "username", false
		}
	}
	if req.FullName == "" || utf8.RuneCountInString(req.FullName) > maxFullNameLen {
		return "fullName", false
	}
	if !ValidEmail(req.Email) {
		return "email", false
	}
	if req.Password == "" {
		return "password", false
	}
	return "", true
}

// ValidEmail reports whether email is a bare address with a dotted domain.
func ValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (*RegisterResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.PolicyError == nil ||
		deps.HashPassword == nil ||
		deps.CreateAccount == nil ||
		deps.IssueTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(err error) bool { return errors.Is(err, deps.Errors.AccountExists) }
	}

	req = NormalizeRegisterRequest(req)
	fail := func(err error, reason string) (*RegisterResult, error) {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", req.Username, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	if field, ok := ValidateRegisterInput(req); !ok {
		return fail(deps.Errors.InvalidInput, "invalid_"+field)
	}

	report := password.ValidateStrength(req.Password)
	if !report.Valid {
		return fail(deps.PolicyError(report), "weak_password")
	}

	hash, err := deps.HashPassword(req.Password)
	req.Password = ""
	if err != nil {
		if deps.PasswordTooBig != nil && errors.Is(err, deps.PasswordTooBig) {
			return fail(deps.Errors.InvalidInput, "password_too_long")
		}
		return fail(deps.Errors.HashingFailure, "hashing_failure")
	}

	account, err := deps.CreateAccount(ctx, NewAccountInput{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		MFAEnabled:   deps.DefaultMFAEnabled,
	})
	if err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", req.Username, deps.Errors.AccountExists, func() map[string]string {
				return map[string]string{
					"email": req.Email,
				}
			})
			return nil, deps.Errors.AccountExists
		}
		return fail(deps.Errors.BackendUnavailable, "directory_create_failed")
	}

	tokens, err := deps.IssueTokens(ctx, account)
	if err != nil {
		return fail(err, "token_issue_failed")
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, account.ID, account.Username, nil, func() map[string]string {
		return map[string]string{
			"strength": string(report.Strength),
		}
	})

	return &RegisterResult{Account: account, Tokens: tokens}, nil
}
