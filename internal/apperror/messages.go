package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General
	CodeRequiredField:      "Required field is missing",
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidFormat:      "Invalid data format",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	// Provider
	CodeProviderUnavailable: "No wallet provider available",
	CodeUserRejected:        "User rejected the request",
	CodeProviderRPCError:    "Wallet provider RPC call failed",
	CodeChainNotRegistered:  "Chain is not registered with the provider",

	// Network catalog
	CodeNetworkNotFound:  "Network not found in catalog",
	CodeDuplicateChainID: "Duplicate chain id in catalog",

	// Session
	CodeBalanceFetchFailed: "Failed to fetch account balance",
	CodeNoAccounts:         "Provider returned no accounts",
	CodeInvalidAddress:     "Invalid account address",
	CodeInvalidChainID:     "Invalid chain id",

	// Event stream
	CodeEventStreamError:  "Provider event stream error",
	CodeEventStreamClosed: "Provider event stream closed",

	// Circuit breaker
	CodeCircuitOpen: "Circuit breaker is open",
}
