package transform

import "github.com/medihbt/remusys-ir-go/internal/ir"

// Pass is a function-local transform: given an ordering capability and a
// module, mutate fn in place and report whether it changed anything.
type Pass interface {
	Name() string
	RunOnFunc(order InstOrdering, module *ir.Module, fn ir.FuncID) (changed bool, err error)
}
