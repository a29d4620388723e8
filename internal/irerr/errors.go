// Package irerr is the IR core's error taxonomy: typed sanity/semantic
// violations, construction errors, and a Location that lets a caller
// pinpoint where in the module an error was found. Its house style -- a
// stable string code plus a human description plus a category -- carves
// codes into documented numeric ranges, one category per concern.
package irerr

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Code ranges: I01xx ring/parent structure, I02xx section ordering,
// I03xx terminator/phi edges, I04xx type mismatches, I05xx construction,
// I06xx pool/dispose, I07xx analysis.
const (
	// Ring & parent-pointer consistency (§8 properties 1-2).
	CodeUseNotInOperandRing       = "I0101"
	CodeJumpTargetNotInPredRing   = "I0102"
	CodeJumpTargetNotInTermSet    = "I0103"
	CodeInstNotInParentBlock      = "I0104"
	CodeBlockNotInParentFunc      = "I0105"

	// Block section ordering (§8 property 3).
	CodePhiAfterPhiEnd      = "I0201"
	CodeTerminatorNotLast   = "I0202"
	CodeMissingTerminator   = "I0203"
	CodeMultipleTerminators = "I0204"
	CodeMissingPhiEnd       = "I0205"

	// Terminator/phi edge soundness (§8 properties 4-5).
	CodeJumpTargetNullTerminator = "I0301"
	CodeJumpTargetNullBlock      = "I0302"
	CodeJumpTargetCrossFunction  = "I0303"
	CodePhiPredMismatch          = "I0304"
	CodeDuplicatedSwitchCase     = "I0305"

	// Typed operand contract violations (§4.F, §4.H layer 2).
	CodeTypeMismatch  = "I0401"
	CodeOperandArity  = "I0402"
	CodeGepTypeChain  = "I0403"

	// Construction errors (§7 "Construction errors").
	CodeNullFocus           = "I0501"
	CodeInsertInPhiSection  = "I0502"
	CodeBlockHasNoTerminator = "I0503"

	// Pool/dispose errors (§7 "Pool/dispose errors").
	CodeAlreadyDisposed  = "I0601"
	CodeSymbolTableBusy  = "I0602"

	// Analysis errors (§7 "Analysis errors").
	CodeFuncIsExtern   = "I0701"
	CodeFuncCannotExit = "I0702"
)

var descriptions = map[string]string{
	CodeUseNotInOperandRing:      "Use is not linked into its operand's user ring",
	CodeJumpTargetNotInPredRing:  "JumpTarget is not linked into its target block's predecessor ring",
	CodeJumpTargetNotInTermSet:   "JumpTarget is not present in its terminator's jump-target set",
	CodeInstNotInParentBlock:     "Instruction is not a member of its recorded parent block's instruction list",
	CodeBlockNotInParentFunc:     "Non-entry block is not a member of its recorded parent function's block list",
	CodePhiAfterPhiEnd:           "Phi instruction found after the PhiEnd marker",
	CodeTerminatorNotLast:        "Terminator instruction is not the last instruction in its block",
	CodeMissingTerminator:        "Block has no terminator instruction",
	CodeMultipleTerminators:      "Block has more than one terminator instruction",
	CodeMissingPhiEnd:            "Block is missing its PhiEnd marker",
	CodeJumpTargetNullTerminator: "JumpTarget has a null terminator reference",
	CodeJumpTargetNullBlock:      "JumpTarget has a null target block reference",
	CodeJumpTargetCrossFunction:  "JumpTarget's block belongs to a different function than its terminator",
	CodePhiPredMismatch:          "Phi incoming-block set does not equal its parent block's predecessor set",
	CodeDuplicatedSwitchCase:     "Switch statement has two cases with the same discriminator value",
	CodeTypeMismatch:             "Operand type does not match the opcode's contract",
	CodeOperandArity:             "Instruction has the wrong number of operands for its opcode",
	CodeGepTypeChain:             "GEP index sequence does not resolve initial_ty to final_ty",
	CodeNullFocus:                "Builder operation attempted with no focused block/function",
	CodeInsertInPhiSection:       "Attempted insertion violates the block's phi/body/terminator section ordering",
	CodeBlockHasNoTerminator:     "Block construction completed without a terminator",
	CodeAlreadyDisposed:          "Entity was already disposed",
	CodeSymbolTableBusy:          "Symbol table is being enumerated and cannot be mutated",
	CodeFuncIsExtern:             "Function has no body (extern)",
	CodeFuncCannotExit:           "Function has no reachable exit block for a backward analysis",
}

var categories = []struct {
	prefix string
	name   string
}{
	{"I01", "Ring & Parent Consistency"},
	{"I02", "Block Section Ordering"},
	{"I03", "Terminator & Phi Edges"},
	{"I04", "Type Contract"},
	{"I05", "Construction"},
	{"I06", "Pool & Dispose"},
	{"I07", "Analysis"},
}

// Describe returns a human-readable description of a Code, or "unknown
// error code" if code isn't recognized.
func Describe(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "unknown error code"
}

// Category returns the documented range name a code falls into.
func Category(code string) string {
	for _, c := range categories {
		if strings.HasPrefix(code, c.prefix) {
			return c.name
		}
	}
	return "Unknown"
}

// LocationKind discriminates which kind of entity a Location points at.
type LocationKind int

const (
	LocModule LocationKind = iota
	LocGlobal
	LocFunc
	LocBlock
	LocInst
	LocUse
	LocJumpTarget
	LocOperand
)

// Location pinpoints where in a module an error was found. Handle is an
// opaque arena.Handle index so this package stays independent of
// internal/ir's concrete ID types; internal/ir and internal/validate wrap
// their typed IDs into a Location at the point an error is raised.
type Location struct {
	Kind   LocationKind
	Handle uint32
	Extra  string // human-readable extra context (e.g. an operand's literal rendering)
}

func (l Location) String() string {
	switch l.Kind {
	case LocModule:
		return "module"
	case LocGlobal:
		return fmt.Sprintf("global#%d", l.Handle)
	case LocFunc:
		return fmt.Sprintf("func#%d", l.Handle)
	case LocBlock:
		return fmt.Sprintf("block#%d", l.Handle)
	case LocInst:
		return fmt.Sprintf("inst#%d", l.Handle)
	case LocUse:
		return fmt.Sprintf("use#%d", l.Handle)
	case LocJumpTarget:
		return fmt.Sprintf("jumptarget#%d", l.Handle)
	case LocOperand:
		return fmt.Sprintf("operand(%s)", l.Extra)
	default:
		return "<unknown location>"
	}
}

// SanityErr is returned by the structural (layer-1) validator. It wraps
// a Code with the Location the violation was found at.
type SanityErr struct {
	Code     string
	Location Location
	Detail   string
}

func (e *SanityErr) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s at %s: %s", e.Code, Describe(e.Code), e.Location, e.Detail)
	}
	return fmt.Sprintf("[%s] %s at %s", e.Code, Describe(e.Code), e.Location)
}

// NewSanityErr constructs a SanityErr, wrapping it with pkg/errors so the
// call stack that raised it survives for Reporter/debug dumps.
func NewSanityErr(code string, loc Location, detail string) error {
	return errors.WithStack(&SanityErr{Code: code, Location: loc, Detail: detail})
}

// TypeMismatchErr reports a type contract violation at an instruction's
// operand or result.
type TypeMismatchErr struct {
	Location Location
	Expected string
	Found    string
	Kind     string // e.g. "operand 0", "result"
}

func (e *TypeMismatchErr) Error() string {
	return fmt.Sprintf("[%s] type mismatch at %s (%s): expected %s, found %s",
		CodeTypeMismatch, e.Location, e.Kind, e.Expected, e.Found)
}

func NewTypeMismatchErr(loc Location, kind, expected, found string) error {
	return errors.WithStack(&TypeMismatchErr{Location: loc, Expected: expected, Found: found, Kind: kind})
}

// ConstructionErr reports a builder-level error: null focus, inserting a
// terminator in the phi section, a block with no terminator, etc. Unlike
// SanityErr these are expected to be recoverable by the caller.
type ConstructionErr struct {
	Code   string
	Detail string
}

func (e *ConstructionErr) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, Describe(e.Code), e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, Describe(e.Code))
}

func NewConstructionErr(code, detail string) error {
	return errors.WithStack(&ConstructionErr{Code: code, Detail: detail})
}

// AnalysisErr reports a CFG-analysis precondition failure: FuncIsExtern,
// FuncCannotExit.
type AnalysisErr struct {
	Code   string
	Detail string
}

func (e *AnalysisErr) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, Describe(e.Code), e.Detail)
}

func NewAnalysisErr(code, detail string) error {
	return errors.WithStack(&AnalysisErr{Code: code, Detail: detail})
}

// IsWarning reports whether code is a warning rather than a hard error.
// Nothing in this taxonomy is currently a warning (the IR core has no
// lint-style diagnostics), but the hook is kept so a future W-numbered
// range slots in without changing callers.
func IsWarning(code string) bool {
	return len(code) > 0 && code[0] == 'W'
}

// Reporter renders errors to a terminal with a simple color scheme: red
// for hard errors, yellow for warnings, bold for the code itself.
type Reporter struct {
	NoColor bool
}

func NewReporter() *Reporter { return &Reporter{} }

// Render writes a one-line, colorized summary of err to sb. If err carries
// a stack (because it was built with errors.WithStack), the root cause is
// unwrapped first via errors.Cause so the SanityErr/TypeMismatchErr/
// ConstructionErr payload is what gets formatted.
func (r *Reporter) Render(err error) string {
	root := errors.Cause(err)

	code, isWarn := "", false
	switch e := root.(type) {
	case *SanityErr:
		code = e.Code
	case *TypeMismatchErr:
		code = CodeTypeMismatch
	case *ConstructionErr:
		code = e.Code
	case *AnalysisErr:
		code = e.Code
	}
	if code != "" {
		isWarn = IsWarning(code)
	}

	label := "error"
	labelColor := color.New(color.FgRed, color.Bold)
	if isWarn {
		label = "warning"
		labelColor = color.New(color.FgYellow, color.Bold)
	}
	if r.NoColor {
		labelColor.DisableColor()
	}

	var sb strings.Builder
	sb.WriteString(labelColor.Sprint(label))
	if code != "" {
		sb.WriteString(fmt.Sprintf(" %s", color.New(color.Bold).Sprint(code)))
	}
	sb.WriteString(": ")
	sb.WriteString(root.Error())
	return sb.String()
}
