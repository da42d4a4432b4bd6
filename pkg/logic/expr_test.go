package logic

import (
	"errors"
	"go/format"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalSet(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ids  []string
		want bool
	}{
		{name: "single present", expr: "ECO1016", ids: []string{"ECO1016"}, want: true},
		{name: "single absent", expr: "ECO1016", ids: []string{"ECO1026"}, want: false},
		{name: "and both present", expr: "ruleA & ruleB", ids: []string{"ruleA", "ruleB"}, want: true},
		{name: "and one missing", expr: "ruleA & ruleB", ids: []string{"ruleA"}, want: false},
		{name: "or one present", expr: "ruleA | ruleB", ids: []string{"ruleB"}, want: true},
		{name: "or none present", expr: "ruleA | ruleB", ids: nil, want: false},
		{name: "and binds tighter than or", expr: "a | b & c", ids: []string{"a"}, want: true},
		{name: "and binds tighter than or, right side", expr: "a | b & c", ids: []string{"b"}, want: false},
		{name: "parentheses", expr: "(a | b) & c", ids: []string{"b", "c"}, want: true},
		{name: "parentheses missing conjunct", expr: "(a | b) & c", ids: []string{"a", "b"}, want: false},
		{name: "no spaces", expr: "ECO1016&ECO1026", ids: []string{"ECO1016", "ECO1026"}, want: true},
		{name: "prefix ids do not collide", expr: "ECO10 & ECO101", ids: []string{"ECO101"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalSet(tt.expr, tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{
		"",
		"   ",
		"a &",
		"& a",
		"(a | b",
		"a | b)",
		"a b",
		"a & ()",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			require.Error(t, err)
			var serr *SyntaxError
			assert.True(t, errors.As(err, &serr))
		})
	}
}

func TestIdentifiers(t *testing.T) {
	e, err := Parse("(ECO1 | ECO2) & ECO1 & ECO3")
	require.NoError(t, err)
	assert.Equal(t, []string{"ECO1", "ECO2", "ECO3"}, Identifiers(e))
}

func TestExprString(t *testing.T) {
	e, err := Parse("a | b & c")
	require.NoError(t, err)
	assert.Equal(t, "(a | (b & c))", e.String())
}

func TestSourceIsFormatted(t *testing.T) {
	src, err := os.ReadFile("expr.go")
	require.NoError(t, err)
	formatted, err := format.Source(src)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), string(src))
}
