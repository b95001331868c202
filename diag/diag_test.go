package diag_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/diag"
)

func TestReportErrorFormatting(t *testing.T) {
	specs := []struct {
		name string
		r    *diag.Report
		want string
	}{
		{
			name: "no-span",
			r:    diag.New("ir.verify", "bad thing"),
			want: "[ir.verify] error: bad thing",
		},
		{
			name: "with-span",
			r:    diag.New("ir.verify", "bad thing").At(diag.Span{File: "a.mlir", Line: 3, Col: 5}),
			want: "a.mlir:3:5: [ir.verify] error: bad thing",
		},
	}
	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			assert.Equal(t, spec.want, spec.r.Error())
		})
	}
}

func TestReportWrapPreservesCauseAndUnwraps(t *testing.T) {
	cause := errors.New("underlying failure")
	r := diag.New("scheduler", "spill required").Wrap(cause)

	require.Error(t, r.Cause())
	assert.True(t, errors.Is(r, cause), "errors.Is must see through Unwrap to the wrapped cause")
}

func TestReportAtDoesNotMutateOriginal(t *testing.T) {
	base := diag.New("pass.manager", "iteration limit exceeded")
	anchored := base.At(diag.Span{File: "x.mlir", Line: 1, Col: 1})

	assert.True(t, base.Span.IsZero(), "At must return a copy, leaving the receiver's Span zero")
	assert.False(t, anchored.Span.IsZero())
}

func TestSinkCollectsAndEchoes(t *testing.T) {
	var buf bytes.Buffer
	sink := diag.NewSink(&buf)

	sink.Emit(diag.New("rewrite.greedy", "pattern did not converge"))
	sink.Emit(&diag.Report{Module: "ir.verify", Message: "ok", Severity: diag.SeverityWarning})

	require.Len(t, sink.Reports(), 2)
	assert.True(t, sink.HasErrors(), "the first emitted report defaults to SeverityError")
	assert.NotEmpty(t, buf.String(), "a non-nil writer must receive each report")

	sink.Reset()
	assert.Empty(t, sink.Reports())
	assert.False(t, sink.HasErrors())
}

func TestSinkHasErrorsIsFalseWhenOnlyWarnings(t *testing.T) {
	sink := diag.NewSink(nil)
	sink.Emit(&diag.Report{Module: "m", Message: "heads up", Severity: diag.SeverityWarning})
	sink.Emit(&diag.Report{Module: "m", Message: "fyi", Severity: diag.SeverityNote})

	assert.False(t, sink.HasErrors())
}
