// Package stdlib embeds the zena prelude (module.Prelude) into the compiler
// binary, so a host never needs an on-disk stdlib directory to compile a
// program (spec.md 3.1 / SPEC_FULL.md 3.1). Grounded on the teacher's own
// go:embed use for bundled assets, e.g. examples/assemblyscript's embedded
// .wasm fixture.
package stdlib

import (
	"embed"
	"strings"

	"github.com/elematic/zena-sub002/internal/module"
)

//go:embed sources/*.zena
var sources embed.FS

// Register injects every embedded prelude source into host as a virtual
// file at its zena: specifier, taking priority over anything host would
// otherwise resolve from disk (module.FileHost.RegisterVirtualFile's own
// doc comment). Call this once, before Graph.Load, on any host a CLI build
// or Compile call constructs.
func Register(host module.Host) {
	for _, specifier := range module.Prelude {
		name := strings.TrimPrefix(specifier, "zena:")
		data, err := sources.ReadFile("sources/" + name + ".zena")
		if err != nil {
			// Every entry in module.Prelude must have a matching embedded
			// source; a mismatch here is a packaging bug, not a user-facing
			// compile error.
			panic("stdlib: missing embedded source for " + specifier + ": " + err.Error())
		}
		host.RegisterVirtualFile(specifier, string(data))
	}
}
