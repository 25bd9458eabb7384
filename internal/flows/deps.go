package flows

// Deps groups every flow dependency set wired by the root engine.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	OTP      OTPDeps
	MFA      MFADeps
	Validate ValidateDeps
	Logout   LogoutDeps
	Refresh  RefreshDeps
}
