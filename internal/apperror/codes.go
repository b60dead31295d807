package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes
const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Wallet connection error codes
const (
	// Provider errors
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeUserRejected        Code = "USER_REJECTED"
	CodeProviderRPCError    Code = "PROVIDER_RPC_ERROR"
	CodeChainNotRegistered  Code = "CHAIN_NOT_REGISTERED"

	// Network catalog errors
	CodeNetworkNotFound  Code = "NETWORK_NOT_FOUND"
	CodeDuplicateChainID Code = "DUPLICATE_CHAIN_ID"

	// Session errors
	CodeBalanceFetchFailed Code = "BALANCE_FETCH_FAILED"
	CodeNoAccounts         Code = "NO_ACCOUNTS"
	CodeInvalidAddress     Code = "INVALID_ADDRESS"
	CodeInvalidChainID     Code = "INVALID_CHAIN_ID"

	// Event stream errors
	CodeEventStreamError  Code = "EVENT_STREAM_ERROR"
	CodeEventStreamClosed Code = "EVENT_STREAM_CLOSED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
