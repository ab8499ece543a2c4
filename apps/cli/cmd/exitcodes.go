package cmd

// Exit codes for httpkit CLI
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitRequestError indicates a generic request failure
	ExitRequestError = 1

	// ExitSchemaFailure indicates the response failed schema validation
	ExitSchemaFailure = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
