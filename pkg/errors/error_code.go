package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidSpec          ErrorCode = 100
	ErrCodeMissingStopLoss      ErrorCode = 101
	ErrCodeRiskOutOfRange       ErrorCode = 102
	ErrCodeInvalidCondition     ErrorCode = 103
	ErrCodeInvalidExitRule      ErrorCode = 104
	ErrCodeInvalidParameter     ErrorCode = 105
	ErrCodeInvalidConfiguration ErrorCode = 106
	ErrCodeInvalidVersion       ErrorCode = 107
	ErrCodeInvalidTimeframe     ErrorCode = 108

	// Data errors (200-299)
	ErrCodeInsufficientData ErrorCode = 200
	ErrCodeInvalidCandle    ErrorCode = 201
	ErrCodeDataNotFound     ErrorCode = 202
	ErrCodeQueryFailed      ErrorCode = 203
	ErrCodeStoreUnavailable ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeIndicatorOutputMissing ErrorCode = 303

	// Strategy lifecycle errors (400-499)
	ErrCodeAlreadyRunning    ErrorCode = 400
	ErrCodeNotRunning        ErrorCode = 401
	ErrCodeInstanceStopped   ErrorCode = 402
	ErrCodeStrategyNotLoaded ErrorCode = 403

	// Exchange errors (500-599)
	ErrCodeExchangeUnavailable ErrorCode = 500
	ErrCodeExchangeTimeout     ErrorCode = 501
	ErrCodeOrderRejected       ErrorCode = 502
	ErrCodeOrderFailed         ErrorCode = 503
	ErrCodePositionNotFound    ErrorCode = 504
	ErrCodeBalanceUnavailable  ErrorCode = 505

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed   ErrorCode = 600
	ErrCodeBacktestAborted      ErrorCode = 601
	ErrCodeOptimizationFailed   ErrorCode = 602
	ErrCodeNoTradesProduced     ErrorCode = 603
	ErrCodeBacktestNoDatasource ErrorCode = 604

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)
