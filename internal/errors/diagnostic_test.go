package errors

import (
	"testing"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/stretchr/testify/assert"
)

func TestNewDiagnosticFormatsLocationAndMessage(t *testing.T) {
	pos := ast.Pos{File: "main.zena", Line: 4, Column: 9}
	d := New(TC001, pos, "expected %s, found %s", "i32", "string")

	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, TC001, d.Code)
	assert.Equal(t, "expected i32, found string", d.Message)
	assert.Equal(t, "typecheck", d.Phase)
	assert.Equal(t, "main.zena:4:9: TC001: expected i32, found string", d.Error())
}

func TestWarningSetsSeverity(t *testing.T) {
	d := Warning(TC012, ast.Pos{File: "a.zena"}, "unused import")
	assert.Equal(t, SeverityWarning, d.Severity)
}

func TestDiagnosticToJSONRoundtrips(t *testing.T) {
	d := New(MOD001, ast.Pos{File: "a.zena", Line: 1, Column: 1}, "module not found")
	data, err := d.ToJSON()
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"error"`)
	assert.Contains(t, string(data), `"code":"MOD001"`)
}

func TestInternalErrorWrapsCause(t *testing.T) {
	cause := assertErr("boom")
	err := NewInternal("unreachable codegen path", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "internal compiler error")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
