package errors

import "testing"

func TestErrorCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		phase    string
		category string
	}{
		{"PAR001", PAR001, "parser", "syntax"},
		{"PAR003", PAR003, "parser", "syntax"},
		{"PAR009", PAR009, "parser", "syntax"},

		{"MOD001", MOD001, "module", "resolution"},
		{"MOD004", MOD004, "module", "namespace"},

		{"LDR001", LDR001, "loader", "io"},
		{"LDR002", LDR002, "loader", "dependency"},

		{"TC001", TC001, "typecheck", "type"},
		{"TC003", TC003, "typecheck", "call"},
		{"TC008", TC008, "typecheck", "inference"},

		{"GEN001", GEN001, "codegen", "lowering"},
		{"WASM001", WASM001, "emit", "limit"},
		{"ICE001", ICE001, "internal", "invariant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, exists := GetErrorInfo(tt.code)
			if !exists {
				t.Fatalf("code %s not found in registry", tt.code)
			}
			if info.Code != tt.code {
				t.Errorf("Code mismatch: got %s, want %s", info.Code, tt.code)
			}
			if info.Phase != tt.phase {
				t.Errorf("Phase mismatch for %s: got %s, want %s", tt.code, info.Phase, tt.phase)
			}
			if info.Category != tt.category {
				t.Errorf("Category mismatch for %s: got %s, want %s", tt.code, info.Category, tt.category)
			}
		})
	}
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		isParser bool
		isModule bool
		isLoader bool
		isType   bool
		isICE    bool
	}{
		{"Parser error", PAR001, true, false, false, false, false},
		{"Module error", MOD001, false, true, false, false, false},
		{"Loader error", LDR001, false, false, true, false, false},
		{"Type error", TC001, false, false, false, true, false},
		{"Internal error", ICE001, false, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsParserError(tt.code); got != tt.isParser {
				t.Errorf("IsParserError(%s) = %v, want %v", tt.code, got, tt.isParser)
			}
			if got := IsModuleError(tt.code); got != tt.isModule {
				t.Errorf("IsModuleError(%s) = %v, want %v", tt.code, got, tt.isModule)
			}
			if got := IsLoaderError(tt.code); got != tt.isLoader {
				t.Errorf("IsLoaderError(%s) = %v, want %v", tt.code, got, tt.isLoader)
			}
			if got := IsTypeError(tt.code); got != tt.isType {
				t.Errorf("IsTypeError(%s) = %v, want %v", tt.code, got, tt.isType)
			}
			if got := IsInternalError(tt.code); got != tt.isICE {
				t.Errorf("IsInternalError(%s) = %v, want %v", tt.code, got, tt.isICE)
			}
		})
	}
}

func TestErrorInfoConsistency(t *testing.T) {
	validPhases := map[string]bool{
		"parser": true, "module": true, "loader": true,
		"typecheck": true, "codegen": true, "emit": true,
		"config": true, "internal": true,
	}
	for code, info := range ErrorRegistry {
		if info.Code != code {
			t.Errorf("Code mismatch in registry: key=%s, info.Code=%s", code, info.Code)
		}
		if len(code) < 4 || len(code) > 7 {
			t.Errorf("Invalid code format: %s", code)
		}
		if !validPhases[info.Phase] {
			t.Errorf("Invalid phase for %s: %s", code, info.Phase)
		}
		if info.Description == "" {
			t.Errorf("Empty description for %s", code)
		}
	}
}
