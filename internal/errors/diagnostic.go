package errors

import (
	"encoding/json"
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
)

// Severity classifies a Diagnostic per spec.md 6.4.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Location is the host-facing position of a Diagnostic, mirroring
// spec.md 6.4's {file, line, column} shape.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Diagnostic is the user-facing error/warning tier described in spec.md 7:
// produced by a phase that detected a fault in the program being compiled,
// as opposed to a compiler-bug panic (see Internal).
type Diagnostic struct {
	Severity Severity  `json:"severity"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`

	// Phase names the compiler stage that raised the diagnostic (parser,
	// module, typecheck, codegen, emit, config), for tooling that wants to
	// filter or group without re-parsing Code.
	Phase string `json:"-"`
}

// New builds an error-severity Diagnostic at pos.
func New(code string, pos ast.Pos, format string, args ...interface{}) *Diagnostic {
	info, _ := GetErrorInfo(code)
	return &Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: &Location{File: pos.File, Line: pos.Line, Column: pos.Column},
		Phase:    info.Phase,
	}
}

// Warning builds a warning-severity Diagnostic at pos.
func Warning(code string, pos ast.Pos, format string, args ...interface{}) *Diagnostic {
	d := New(code, pos, format, args...)
	d.Severity = SeverityWarning
	return d
}

func (d *Diagnostic) Error() string {
	if d.Location != nil {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.Location.File, d.Location.Line, d.Location.Column, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// ToJSON renders the diagnostic in the wire format a host tool consumes.
func (d *Diagnostic) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}

// Internal represents a violated compiler invariant (spec.md 7's second
// error tier): it always carries ICE001 and is never something a zena
// program's author can fix by editing their source.
type Internal struct {
	Message string
	Cause   error
}

func (e *Internal) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal compiler error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal compiler error: %s", e.Message)
}

func (e *Internal) Unwrap() error { return e.Cause }

// NewInternal wraps cause (which may be nil) as a fatal Internal error.
func NewInternal(message string, cause error) *Internal {
	return &Internal{Message: message, Cause: cause}
}
