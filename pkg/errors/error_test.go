package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidBar, "high is below low")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInvalidBar, err.Code)
	assert.Equal(t, "[104] high is below low", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeDuplicateTimestamp, "duplicate timestamp at index %d", 7)
	assert.Equal(t, "[103] duplicate timestamp at index 7", err.Error())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("read failed")
	err := Wrap(ErrCodeDataParseFailed, "failed to read csv", cause)

	assert.Equal(t, "[100] failed to read csv: read failed", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, Is(err, cause))
}

func TestWrapf(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrapf(ErrCodeStateStoreFailed, cause, "insert fill %s", "abc")
	assert.Equal(t, "[502] insert fill abc: boom", err.Error())
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "structured error",
			err:  New(ErrCodeInsufficientFunds, "not enough cash"),
			want: ErrCodeInsufficientFunds,
		},
		{
			name: "wrapped structured error",
			err:  Wrap(ErrCodeStrategyRuntimeError, "strategy failed", New(ErrCodeInvalidSignal, "bad signal")),
			want: ErrCodeStrategyRuntimeError,
		},
		{
			name: "plain error",
			err:  stderrors.New("plain"),
			want: ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := New(ErrCodeShortingDisallowed, "shorting is disabled")
	assert.True(t, HasCode(err, ErrCodeShortingDisallowed))
	assert.False(t, HasCode(err, ErrCodeInsufficientFunds))
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(New(ErrCodeInsufficientFunds, "not enough cash")))
	assert.True(t, IsRejection(New(ErrCodeShortingDisallowed, "no shorting")))
	assert.False(t, IsRejection(New(ErrCodeInvalidBar, "bad bar")))
	assert.False(t, IsRejection(stderrors.New("plain")))
}

func TestAs(t *testing.T) {
	var target *Error

	err := Wrap(ErrCodeLedgerViolation, "cash went negative", stderrors.New("inner"))
	require.True(t, As(err, &target))
	assert.Equal(t, ErrCodeLedgerViolation, target.Code)
}
