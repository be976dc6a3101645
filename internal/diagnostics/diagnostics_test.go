package diagnostics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordTimingAccumulatesAcrossRetries(t *testing.T) {
	d := New()
	d.RecordTiming("validation", 12)
	d.RecordTiming("validation", 8)

	require.Equal(t, 20, d.TimingsMS["validation"])
}

func TestRecordValidatorFailureBumpsRetries(t *testing.T) {
	d := New()
	d.RecordValidatorFailure("no such table: widgets")
	d.RecordValidatorFailure("forbidden keyword: DROP")

	require.Equal(t, 2, d.Retries)
	require.Equal(t, []string{"no such table: widgets", "forbidden keyword: DROP"}, d.ValidatorFailReasons)
}

func TestRecordExecutorErrorBumpsRetries(t *testing.T) {
	d := New()
	d.RecordExecutorError("database is locked")

	require.Equal(t, 1, d.Retries)
	require.Equal(t, []string{"database is locked"}, d.ExecutorErrors)
}

func TestLoggerSinkDispatchesByError(t *testing.T) {
	var infoCalls, warnCalls int
	sink := LoggerSink{
		Info: func(msg string, kv ...any) { infoCalls++ },
		Warn: func(msg string, kv ...any) { warnCalls++ },
	}

	sink.Stage("planning", 5, nil)
	sink.Stage("execution", 3, errors.New("boom"))

	require.Equal(t, 1, infoCalls)
	require.Equal(t, 1, warnCalls)
}
