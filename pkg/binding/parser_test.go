package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Precedence(t *testing.T) {
	// a + b * c parses as a + (b * c)
	expr, err := Parse("a + b * c")
	require.NoError(t, err)

	add, ok := expr.(*Binary)
	require.True(t, ok, "top node should be +")
	assert.Equal(t, OpAdd, add.Op)

	mul, ok := add.Y.(*Binary)
	require.True(t, ok, "right of + should be *")
	assert.Equal(t, OpMul, mul.Op)
}

func TestParse_Ternary(t *testing.T) {
	expr, err := Parse("done ? 'yes' : 'no'")
	require.NoError(t, err)

	cond, ok := expr.(*Cond)
	require.True(t, ok)
	assert.IsType(t, &Ident{}, cond.If)
	assert.IsType(t, &Lit{}, cond.Then)
	assert.IsType(t, &Lit{}, cond.Else)
}

func TestParse_BooleanPrecedence(t *testing.T) {
	// a || b && c parses as a || (b && c)
	expr, err := Parse("a || b && c")
	require.NoError(t, err)

	or, ok := expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpOr, or.Op)
	and, ok := or.Y.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)
}

func TestParse_Postfix(t *testing.T) {
	expr, err := Parse("user.addresses[0].city")
	require.NoError(t, err)

	city, ok := expr.(*Field)
	require.True(t, ok)
	assert.Equal(t, "city", city.Name)

	idx, ok := city.Recv.(*Index)
	require.True(t, ok)

	addrs, ok := idx.Recv.(*Field)
	require.True(t, ok)
	assert.Equal(t, "addresses", addrs.Name)
	assert.IsType(t, &Ident{}, addrs.Recv)
}

func TestParse_LenAccessor(t *testing.T) {
	expr, err := Parse("items.len() > 0")
	require.NoError(t, err)

	cmp, ok := expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpGt, cmp.Op)

	call, ok := cmp.X.(*Call)
	require.True(t, ok)
	assert.Equal(t, "len", call.Name)
	assert.Empty(t, call.Args)
}

func TestParse_Unary(t *testing.T) {
	expr, err := Parse("!done && -x < 0")
	require.NoError(t, err)

	and, ok := expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)
	assert.IsType(t, &Unary{}, and.X)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"dangling operator", "a +"},
		{"missing colon", "a ? b"},
		{"unterminated string", "'abc"},
		{"unclosed paren", "(a + b"},
		{"unclosed index", "items[0"},
		{"trailing junk", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.IsType(t, &ParseError{}, err)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("Count: {count} of {total}")
	require.NoError(t, err)
	require.Len(t, tmpl.Segments, 4)

	assert.Equal(t, "Count: ", tmpl.Segments[0].Text)
	assert.NotNil(t, tmpl.Segments[1].Expr)
	assert.Equal(t, " of ", tmpl.Segments[2].Text)
	assert.NotNil(t, tmpl.Segments[3].Expr)
}

func TestParseTemplate_Single(t *testing.T) {
	tmpl, err := ParseTemplate("{items.len()}")
	require.NoError(t, err)

	expr, ok := tmpl.Single()
	require.True(t, ok)
	assert.IsType(t, &Call{}, expr)
}

func TestParseTemplate_Literal(t *testing.T) {
	tmpl, err := ParseTemplate("plain text with {{braces}}")
	require.NoError(t, err)
	assert.True(t, tmpl.IsLiteral())
	require.Len(t, tmpl.Segments, 1)
	assert.Equal(t, "plain text with {braces}", tmpl.Segments[0].Text)
}

func TestParseTemplate_ErrorOffset(t *testing.T) {
	_, err := ParseTemplate("Count: {count +}")
	require.Error(t, err)

	pe, ok := err.(*ParseError)
	require.True(t, ok)
	// Offset points into the whole attribute value, not just the binding.
	assert.Greater(t, pe.Offset, 7)
}
