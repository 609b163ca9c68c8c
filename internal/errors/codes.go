package errors

import "net/http"

// ErrorCode represents a standardized error code used throughout the API
type ErrorCode string

// Authentication error codes (AUTH_*)
const (
	AuthInvalidCredentials     ErrorCode = "AUTH_001"
	AuthMissingToken           ErrorCode = "AUTH_002"
	AuthExpiredToken           ErrorCode = "AUTH_003"
	AuthInvalidTokenFormat     ErrorCode = "AUTH_004"
	AuthInsufficientPermission ErrorCode = "AUTH_005"
	AuthAccountLocked          ErrorCode = "AUTH_006"
	AuthInvalidRefreshToken    ErrorCode = "AUTH_007"
)

// Validation error codes (VALIDATION_*)
const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationOutOfRange    ErrorCode = "VALIDATION_004"
	ValidationInvalidEmail  ErrorCode = "VALIDATION_005"
	ValidationWeakPassword  ErrorCode = "VALIDATION_006"
)

// User error codes (USER_*)
const (
	UserNotFound      ErrorCode = "USER_001"
	UserAlreadyExists ErrorCode = "USER_002"
	UserInvalidID     ErrorCode = "USER_003"
)

// Bank-data provider error codes (PROVIDER_*)
const (
	ProviderUnavailable       ErrorCode = "PROVIDER_001"
	ProviderLinkTokenFailed   ErrorCode = "PROVIDER_002"
	ProviderExchangeRejected  ErrorCode = "PROVIDER_003"
	ProviderSecureTokenFailed ErrorCode = "PROVIDER_004"
)

// System error codes (SYSTEM_*)
const (
	SystemInternalError      ErrorCode = "SYSTEM_001"
	SystemDatabaseError      ErrorCode = "SYSTEM_002"
	SystemServiceUnavailable ErrorCode = "SYSTEM_003"
	SystemConfigurationError ErrorCode = "SYSTEM_004"
	SystemUnexpectedError    ErrorCode = "SYSTEM_005"
	SystemRateLimitExceeded  ErrorCode = "SYSTEM_006"
	SystemTimeout            ErrorCode = "SYSTEM_007"
	SystemResourceNotFound   ErrorCode = "SYSTEM_008"
)

// definition is the client-facing message and HTTP status of a code.
type definition struct {
	status  int
	message string
}

var catalog = map[ErrorCode]definition{
	AuthInvalidCredentials:     {http.StatusUnauthorized, "Incorrect email or password"},
	AuthMissingToken:           {http.StatusUnauthorized, "Authorization token is required"},
	AuthExpiredToken:           {http.StatusUnauthorized, "Authorization token has expired"},
	AuthInvalidTokenFormat:     {http.StatusUnauthorized, "Could not validate credentials"},
	AuthInsufficientPermission: {http.StatusForbidden, "Insufficient permissions to access this resource"},
	AuthAccountLocked:          {http.StatusForbidden, "Account is locked or disabled"},
	AuthInvalidRefreshToken:    {http.StatusUnauthorized, "Refresh token is invalid or has been revoked"},

	ValidationGeneral:       {http.StatusBadRequest, "Validation failed"},
	ValidationRequiredField: {http.StatusBadRequest, "Required field is missing"},
	ValidationInvalidFormat: {http.StatusBadRequest, "Invalid field format"},
	ValidationOutOfRange:    {http.StatusBadRequest, "Field value is out of allowed range"},
	ValidationInvalidEmail:  {http.StatusBadRequest, "Invalid email address format"},
	ValidationWeakPassword:  {http.StatusBadRequest, "Password does not meet the security requirements"},

	UserNotFound:      {http.StatusNotFound, "User not found"},
	UserAlreadyExists: {http.StatusConflict, "Email already registered"},
	UserInvalidID:     {http.StatusBadRequest, "Invalid user ID format"},

	ProviderUnavailable:       {http.StatusServiceUnavailable, "Bank data provider is not configured"},
	ProviderLinkTokenFailed:   {http.StatusInternalServerError, "Could not create link token"},
	ProviderExchangeRejected:  {http.StatusBadRequest, "Bank data provider rejected the public token"},
	ProviderSecureTokenFailed: {http.StatusInternalServerError, "Could not securely store the bank access token"},

	SystemInternalError:      {http.StatusInternalServerError, "An unexpected error occurred. Please contact support with trace ID"},
	SystemDatabaseError:      {http.StatusInternalServerError, "Database connection error"},
	SystemServiceUnavailable: {http.StatusServiceUnavailable, "Service temporarily unavailable"},
	SystemConfigurationError: {http.StatusInternalServerError, "System configuration error"},
	SystemUnexpectedError:    {http.StatusInternalServerError, "An unexpected error occurred"},
	SystemRateLimitExceeded:  {http.StatusTooManyRequests, "Rate limit exceeded. Please try again later"},
	SystemTimeout:            {http.StatusGatewayTimeout, "The request took too long to complete"},
	SystemResourceNotFound:   {http.StatusNotFound, "Resource not found"},
}

// GetErrorMessage returns the default message for code, or a generic one for unknown codes.
func GetErrorMessage(code ErrorCode) string {
	if def, ok := catalog[code]; ok {
		return def.message
	}
	return "An error occurred"
}

// GetHTTPStatus returns the status a code is served with. Unknown codes are 500.
func GetHTTPStatus(code ErrorCode) int {
	if def, ok := catalog[code]; ok {
		return def.status
	}
	return http.StatusInternalServerError
}

func IsValidErrorCode(code ErrorCode) bool {
	_, ok := catalog[code]
	return ok
}
