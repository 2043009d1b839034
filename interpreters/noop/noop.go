package noop

import (
	"context"
	"log"

	"github.com/ColinKennedy/ways/core"
)

// Interpreter is a core.Interpreter which just returns the action's
// arguments without modification.
type Interpreter struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, c *core.Context, args map[string]interface{}, code interface{}, compiled interface{}) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for execution")
	}
	return args, nil
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}
