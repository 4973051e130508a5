package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingCredentials   ErrorCode = 102
	ErrCodeMissingStrategy      ErrorCode = 103
	ErrCodeInvalidInterval      ErrorCode = 104
	ErrCodeConfigFileError      ErrorCode = 105
	ErrCodeUnknownStrategy      ErrorCode = 106
	ErrCodeIncompatibleVersion  ErrorCode = 107

	// Indicator errors (300-399)
	ErrCodeUnknownIndicator ErrorCode = 300
	ErrCodeFetchPanicked    ErrorCode = 301

	// Strategy errors (400-499)
	ErrCodeStrategyFailed   ErrorCode = 400
	ErrCodeStrategyPanicked ErrorCode = 401

	// Exchange errors (500-599)
	ErrCodeTickerFetchFailed     ErrorCode = 500
	ErrCodeOrderBookFetchFailed  ErrorCode = 501
	ErrCodeOpenOrdersFetchFailed ErrorCode = 502
	ErrCodeCancelOrderFailed     ErrorCode = 503
	ErrCodeCancelAllFailed       ErrorCode = 504
	ErrCodeInvalidOrderID        ErrorCode = 505
	ErrCodeMalformedResponse     ErrorCode = 506

	// Live feed errors (700-799)
	ErrCodeFeedNotReady       ErrorCode = 700
	ErrCodeFeedConnectFailed  ErrorCode = 701
	ErrCodeFeedMalformedEvent ErrorCode = 702
)
