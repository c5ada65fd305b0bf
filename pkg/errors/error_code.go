package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Data errors (100-199): malformed or inconsistent bar data.
	// Fatal, surfaced before a run starts.
	ErrCodeDataParseFailed        ErrorCode = 100
	ErrCodeEmptySeries            ErrorCode = 101
	ErrCodeNonMonotonicTimestamps ErrorCode = 102
	ErrCodeDuplicateTimestamp     ErrorCode = 103
	ErrCodeInvalidBar             ErrorCode = 104
	ErrCodeMissingColumn          ErrorCode = 105

	// Config errors (200-299): invalid options or combinations.
	// Fatal, surfaced before a run starts.
	ErrCodeInvalidConfiguration ErrorCode = 200
	ErrCodeInvalidFeeModel      ErrorCode = 201
	ErrCodeInvalidSlippage      ErrorCode = 202
	ErrCodeInvalidInitialCash   ErrorCode = 203
	ErrCodeInvalidTiming        ErrorCode = 204
	ErrCodeUnknownStrategy      ErrorCode = 205
	ErrCodeInvalidWindow        ErrorCode = 206

	// Signal rejection errors (300-399): per-step, non-fatal.
	// Recorded in the rejection log; the run continues with no fill.
	ErrCodeInsufficientFunds  ErrorCode = 300
	ErrCodeShortingDisallowed ErrorCode = 301
	ErrCodeInvalidSignal      ErrorCode = 302

	// Strategy errors (400-499): fatal, transition the engine to Failed.
	ErrCodeStrategyInitFailed    ErrorCode = 400
	ErrCodeStrategyRuntimeError  ErrorCode = 401
	ErrCodeStrategyAlreadyExists ErrorCode = 402

	// Engine errors (500-599): engine and run-state errors.
	ErrCodeEngineNotIdle       ErrorCode = 500
	ErrCodeLedgerViolation     ErrorCode = 501
	ErrCodeStateStoreFailed    ErrorCode = 502
	ErrCodeReportWriteFailed   ErrorCode = 503
	ErrCodeIndicatorNotFound   ErrorCode = 504
	ErrCodeIndicatorDuplicated ErrorCode = 505
)

// IsRejection reports whether a code identifies a non-fatal per-step
// signal rejection rather than a fatal error.
func (c ErrorCode) IsRejection() bool {
	return c >= 300 && c < 400
}
