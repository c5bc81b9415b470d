package session

// Reason classifies why a login attempt failed
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidCredentials
	ReasonMustChangePassword
	ReasonServerError
	ReasonNetwork
)

// String returns the string representation of a Reason
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	case ReasonMustChangePassword:
		return "must_change_password"
	case ReasonServerError:
		return "server_error"
	case ReasonNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// User-facing login messages
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgMustChangePassword = "You must change your password"
	MsgServerError        = "Server error occurred"
)

// LoginResult reports the outcome of Login. Expected failures are reported
// here rather than as errors.
type LoginResult struct {
	Success            bool   `json:"success"`
	Error              string `json:"error,omitempty"`
	MustChangePassword bool   `json:"mustChangePassword,omitempty"`
	Reason             Reason `json:"-"`
}

func failure(reason Reason, msg string) LoginResult {
	return LoginResult{Error: msg, Reason: reason}
}
