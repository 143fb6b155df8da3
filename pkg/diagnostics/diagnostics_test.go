package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &ast.Span{File: "test.ss", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EParse, "unexpected token", span, "check syntax")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Message != "unexpected token" {
		t.Errorf("got Message = %q, want %q", d.Message, "unexpected token")
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	span := &ast.Span{File: "test.ss", StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 10}
	d := diagnostics.MakeDiag(diagnostics.EUnbound, "unbound variable 'x'", span, "assign it before use")

	out := diagnostics.FormatDiagnostic(d, true)
	if !strings.Contains(out, "error[E_UNBOUND]") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "test.ss:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticAnonymousFile(t *testing.T) {
	span := &ast.Span{StartLine: 2, StartCol: 7}
	out := diagnostics.FormatDiagnostic(diagnostics.MakeDiag(diagnostics.EParse, "boom", span, ""), true)
	if !strings.Contains(out, "<input>:2:7") {
		t.Errorf("expected <input> location, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "bad token", nil, "")
	out := diagnostics.FormatDiagnostic(d, false)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
}

func TestFormatDiagnosticsJoinsPretty(t *testing.T) {
	diags := []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EControl, "break outside loop", nil, ""),
		diagnostics.MakeDiag(diagnostics.EDupParam, "duplicate parameter 'a'", nil, ""),
	}
	out := diagnostics.FormatDiagnostics(diags, true)
	if strings.Count(out, "error[") != 2 {
		t.Errorf("expected two formatted diagnostics, got: %s", out)
	}
}
