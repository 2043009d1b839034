package interpreters

import (
	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/interpreters/ecmascript"
	"github.com/ColinKennedy/ways/interpreters/noop"
)

// Standard returns the usual interpreters, keyed by the names that
// sheet actions use.
func Standard() map[string]core.Interpreter {
	is := make(map[string]core.Interpreter)

	es := ecmascript.NewInterpreter()
	is["ecmascript"] = es
	is["ecmascript-5.1"] = es
	is["js"] = es

	is["noop"] = noop.NewInterpreter()

	return is
}
