package module

import (
	"fmt"
	"strings"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/lexer"
	"github.com/elematic/zena-sub002/internal/parser"
)

// Module is one loaded source file (spec.md 3.1).
type Module struct {
	Path     string
	Source   string
	AST      *ast.File
	Imports  map[string]string // specifier-as-written -> resolved path
	Exports  map[string]ast.Decl // kind-qualified name, e.g. "value:add", "type:Point"
	IsStdlib bool

	Diagnostics []*errors.Diagnostic

	// Pending is true from the moment the module is registered as a stub
	// (before its own parse completes) until that parse finishes. A cyclic
	// import observed while Pending is left as-is rather than rejected —
	// the deviation from the teacher's loadStack-based hard cycle error
	// (see DESIGN.md).
	Pending bool
}

// Graph owns every Module reachable from an entry point (spec.md 3.4).
type Graph struct {
	host    Host
	modules map[string]*Module
	// Order lists module paths in the order their parse completed — a
	// topological order broken arbitrarily across cycles, suitable for the
	// checker's Phase A declaration pass.
	Order []string
}

// NewGraph creates an empty Graph against host.
func NewGraph(host Host) *Graph {
	return &Graph{host: host, modules: make(map[string]*Module)}
}

// Module returns the loaded module at path, or nil if never registered.
func (g *Graph) Module(path string) *Module { return g.modules[path] }

// Load transitively loads entryPath and every module it (transitively)
// imports, after first loading the stdlib Prelude. Returns the entry
// module.
func (g *Graph) Load(entryPath string) (*Module, error) {
	for _, specifier := range Prelude {
		path, err := g.host.Resolve(specifier, "")
		if err != nil {
			return nil, fmt.Errorf("resolving prelude module %s: %w", specifier, err)
		}
		if _, err := g.load(path); err != nil {
			return nil, fmt.Errorf("loading prelude module %s: %w", specifier, err)
		}
	}
	return g.load(entryPath)
}

// load implements the depth-first visit from spec.md 4.3: a module is
// registered as a Pending stub the instant it is first seen, before
// recursing into its own imports, so a cyclic edge resolves to the stub
// instead of re-entering parse.
func (g *Graph) load(path string) (*Module, error) {
	if mod, ok := g.modules[path]; ok {
		return mod, nil
	}

	mod := &Module{
		Path:     path,
		Imports:  make(map[string]string),
		Exports:  make(map[string]ast.Decl),
		IsStdlib: strings.HasPrefix(path, "zena:"),
		Pending:  true,
	}
	g.modules[path] = mod

	source, err := g.host.Load(path)
	if err != nil {
		mod.Pending = false
		mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.LDR001, ast.Pos{File: path},
			"cannot load module %q: %v", path, err))
		return mod, nil
	}
	mod.Source = source

	lex := lexer.New(source, path)
	p := parser.New(lex, path)
	file := p.ParseFile()
	mod.AST = file

	for _, perr := range p.Errors() {
		mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.PAR001, ast.Pos{File: path}, "%v", perr))
	}

	for _, imp := range file.Imports {
		resolved, err := g.host.Resolve(imp.Specifier, path)
		if err != nil {
			mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.MOD001, imp.Pos,
				"cannot resolve specifier %q: %v", imp.Specifier, err))
			continue
		}
		imp.Resolved = resolved
		mod.Imports[imp.Specifier] = resolved

		if mod.IsStdlib {
			depIsStdlib := strings.HasPrefix(resolved, "zena:")
			if !depIsStdlib {
				mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.MOD001, imp.Pos,
					"stdlib module %q cannot import non-stdlib module %q", path, resolved))
				continue
			}
		}

		if _, err := g.load(resolved); err != nil {
			return nil, err
		}
	}

	// Re-export sources are loaded like imports, so resolveReExports finds
	// them in g.modules; a specifier that does not resolve is reported there.
	for _, exp := range file.Exports {
		if exp.FromSpecifier == "" {
			continue
		}
		if resolved, err := g.host.Resolve(exp.FromSpecifier, path); err == nil {
			if _, err := g.load(resolved); err != nil {
				return nil, err
			}
		}
	}

	g.collectExports(mod)
	g.resolveReExports(mod)

	mod.Pending = false
	g.Order = append(g.Order, path)
	return mod, nil
}

// collectExports populates mod.Exports from its own top-level declarations,
// kind-qualified as "value:name" or "type:name".
func (g *Graph) collectExports(mod *Module) {
	for _, decl := range mod.AST.Decls {
		switch d := decl.(type) {
		case *ast.LetDecl:
			if d.Exported {
				g.addExport(mod, "value:"+d.Name, d)
			}
		case *ast.FuncDecl:
			if d.Exported {
				g.addExport(mod, "value:"+d.Name, d)
			}
		case *ast.ClassDecl:
			if d.Exported {
				g.addExport(mod, "type:"+d.Name, d)
			}
		case *ast.InterfaceDecl:
			if d.Exported {
				g.addExport(mod, "type:"+d.Name, d)
			}
		case *ast.MixinDecl:
			if d.Exported {
				g.addExport(mod, "type:"+d.Name, d)
			}
		case *ast.EnumDecl:
			if d.Exported {
				g.addExport(mod, "type:"+d.Name, d)
			}
		case *ast.TypeAliasDecl:
			if d.Exported {
				g.addExport(mod, "type:"+d.Name, d)
			}
		}
	}
}

func (g *Graph) addExport(mod *Module, qualifiedName string, decl ast.Decl) {
	if existing, ok := mod.Exports[qualifiedName]; ok && existing != decl {
		mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.MOD004, decl.Position(),
			"duplicate export %q in module %s", qualifiedName, mod.Path))
		return
	}
	mod.Exports[qualifiedName] = decl
}

// resolveReExports handles `export * from './x'` and `export { a, b } from
// './x'`, merging the named module's exports into mod's own export table.
func (g *Graph) resolveReExports(mod *Module) {
	for _, exp := range mod.AST.Exports {
		if exp.FromSpecifier == "" {
			continue
		}
		resolved, err := g.host.Resolve(exp.FromSpecifier, mod.Path)
		if err != nil {
			mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.MOD001, exp.Pos,
				"cannot resolve re-export specifier %q: %v", exp.FromSpecifier, err))
			continue
		}
		source := g.modules[resolved]
		if source == nil {
			mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.MOD003, exp.Pos,
				"re-export source %q was never loaded", exp.FromSpecifier))
			continue
		}

		if exp.Star {
			for name, decl := range source.Exports {
				g.addExport(mod, name, decl)
			}
			continue
		}

		for _, sym := range exp.Symbols {
			name := sym.Name
			alias := name
			if sym.Alias != "" {
				alias = sym.Alias
			}
			decl, ok := source.Exports["value:"+name]
			qualified := "value:" + alias
			if !ok {
				decl, ok = source.Exports["type:"+name]
				qualified = "type:" + alias
			}
			if !ok {
				mod.Diagnostics = append(mod.Diagnostics, errors.New(errors.MOD003, exp.Pos,
					"module %q does not export %q", exp.FromSpecifier, name))
				continue
			}
			g.addExport(mod, qualified, decl)
		}
	}
}

// AllDiagnostics collects every module's diagnostics in load order.
func (g *Graph) AllDiagnostics() []*errors.Diagnostic {
	var all []*errors.Diagnostic
	for _, path := range g.Order {
		all = append(all, g.modules[path].Diagnostics...)
	}
	return all
}
