// Package codegen emits Rust source text for one translated module.  Every
// function walks through a fixed emission state machine; a per-function
// GenerationContext tracks declared names, proven mutability, and inferred
// types so the emitted bindings carry `mut` exactly where a reachable
// statement mutates them.
package codegen

import (
	"sort"
	"strconv"
	"strings"

	"pyrus/ir"
	"pyrus/lifetime"
	"pyrus/ownership"
	"pyrus/report"
	"pyrus/types"
)

// WrapMode controls how fallible functions are wrapped in Result.
type WrapMode int

const (
	// WrapMandatory wraps every function whose body contains a fallible
	// operation: division, raise, or parsing.
	WrapMandatory = WrapMode(iota)

	// WrapBestEffort wraps only functions that raise explicitly; purely
	// arithmetic fallibility is left unwrapped with panicking semantics.
	WrapBestEffort
)

// Options configures one emission run.
type Options struct {
	// The fallible-function wrapping mode.
	Fallible WrapMode
}

// Output is the result of emitting one module.
type Output struct {
	// The emitted Rust source text.
	Source string

	// The external crates the emitted code requires, sorted.
	Crates []string

	// The number of functions emitted and the number that failed.
	Emitted int
	Failed  int
}

// -----------------------------------------------------------------------------

// emitState tracks the per-function emission state machine.
type emitState int

const (
	stateNotStarted = emitState(iota)
	stateParamsEmitted
	stateBodyEmitted
	stateDone
)

// advance moves the state machine forward exactly one step.
func (g *Generator) advance(to emitState) {
	if to != g.state+1 {
		report.ReportICE("emission state advanced from %d to %d", g.state, to)
	}

	g.state = to
}

// -----------------------------------------------------------------------------

// analysis bundles the ownership and lifetime resolutions of one function.
type analysis struct {
	own  *ownership.Result
	life *lifetime.Result
}

// Generator emits Rust source for one module.
type Generator struct {
	// The module being emitted.
	mod *ir.Module

	// The type mapper configured for this run.
	mapper *types.Mapper

	// The emission options.
	opts Options

	// The ownership/lifetime resolutions for every function, computed up
	// front so call sites can borrow arguments per the callee's strategies.
	analyses map[*ir.Function]*analysis

	// Free functions by name, for call-site signature lookup.
	functions map[string]*ir.Function

	// The names of user-defined types in the module.
	userTypes map[string]*ir.Class

	// The crates the emitted code requires so far.
	crates map[string]struct{}

	// The writer for the function currently being emitted.
	w *writer

	// The context of the function currently being emitted.
	ctx *genContext

	// The emission state of the function currently being emitted.
	state emitState

	// The binding name of the innermost enclosing except handler, or empty.
	handlerBinding string

	// The counter for synthesized local names within one function.
	tempCounter int
}

// Generate emits Rust source for a module.  Per-function failures do not
// abort the module: successful functions are still emitted and each failure
// is returned in the error list.
func Generate(mod *ir.Module, mapper *types.Mapper, opts Options) (*Output, *report.ErrorList) {
	g := &Generator{
		mod:       mod,
		mapper:    mapper,
		opts:      opts,
		analyses:  make(map[*ir.Function]*analysis),
		functions: make(map[string]*ir.Function),
		userTypes: make(map[string]*ir.Class),
		crates:    make(map[string]struct{}),
	}

	for _, cls := range mod.Classes {
		g.userTypes[cls.Name] = cls
	}

	for _, fn := range mod.Functions {
		g.functions[fn.Name] = fn
	}

	// Resolve ownership and lifetimes for every function before emitting
	// anything: call sites need the callee's parameter strategies.
	g.analyzeAll()

	errors := &report.ErrorList{}
	out := &writer{}

	for _, global := range mod.Globals {
		g.generateGlobal(out, global)
	}

	for _, cls := range mod.Classes {
		out.blank()
		g.generateClass(out, cls, errors)
	}

	emitted, failed := 0, 0
	for _, fn := range mod.Functions {
		out.blank()

		if g.tryGenerateFunction(out, fn, errors) {
			emitted++
		} else {
			failed++
		}
	}

	source := g.prelude(out.String()) + out.String()

	return &Output{
		Source:  source,
		Crates:  g.sortedCrates(),
		Emitted: emitted,
		Failed:  failed,
	}, errors
}

// analyzeAll runs the ownership and lifetime analyzers over every function
// and method in the module.
func (g *Generator) analyzeAll() {
	analyze := func(fn *ir.Function) {
		own := ownership.Analyze(fn, g.mapper)
		life := lifetime.NewInference().Analyze(fn, g.mapper, own)
		g.analyses[fn] = &analysis{own: own, life: life}
	}

	for _, fn := range g.mod.Functions {
		analyze(fn)
	}

	for _, cls := range g.mod.Classes {
		for _, method := range cls.Methods {
			analyze(method)
		}
	}
}

// tryGenerateFunction emits one function into a scratch writer, appending it
// to the module writer only on success.  A conversion error discards the
// scratch text and records the error.
func (g *Generator) tryGenerateFunction(out *writer, fn *ir.Function, errors *report.ErrorList) (ok bool) {
	scratch := &writer{indent: out.indent}

	func() {
		defer report.CatchErrors(func(err *report.TranslateError) {
			errors.Add(err)
			ok = false
		})

		g.generateFunction(scratch, fn)
		ok = true
	}()

	if ok {
		out.raw(scratch.String())
	}

	return ok
}

// -----------------------------------------------------------------------------

// prelude builds the `use` block for the std items the emitted text refers
// to.  Scanning the finished text keeps the imports exact without threading
// usage flags through every emitter.
func (g *Generator) prelude(source string) string {
	type stdUse struct {
		token string
		path  string
	}

	wanted := []stdUse{
		{"HashMap<", "std::collections::HashMap"},
		{"HashSet<", "std::collections::HashSet"},
		{"Cow<", "std::borrow::Cow"},
		{"Rc<", "std::rc::Rc"},
	}

	p := &writer{}
	any := false

	for _, u := range wanted {
		if strings.Contains(source, u.token) {
			p.line("use %s;", u.path)
			any = true
		}
	}

	if !any {
		return ""
	}

	return p.String()
}

// requireCrate records an external crate the emitted code depends on.
func (g *Generator) requireCrate(name string) {
	g.crates[name] = struct{}{}
}

func (g *Generator) sortedCrates() []string {
	names := make([]string, 0, len(g.crates))
	for name := range g.crates {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// nextTemp mints a synthesized local name.
func (g *Generator) nextTemp(prefix string) string {
	name := prefix + strconv.Itoa(g.tempCounter)
	g.tempCounter++
	return name
}

// shouldWrap reports whether a function's return is wrapped in Result under
// the configured mode.
func (g *Generator) shouldWrap(fn *ir.Function) bool {
	if !fn.CanFail {
		return false
	}

	if g.opts.Fallible == WrapMandatory {
		return true
	}

	return bodyRaises(fn.Body)
}

// unsupported panics with a function-level conversion error; the caller's
// CatchErrors turns it into one entry in the module error list.
func (g *Generator) unsupported(node ir.Node, construct string) {
	panic(report.RaiseUnsupported(node.Span(), construct))
}

// bodyRaises reports whether a body contains an explicit raise.
func bodyRaises(body []ir.Stmt) bool {
	found := false
	ir.WalkBody(body, func(stmt ir.Stmt) {
		if _, ok := stmt.(*ir.Raise); ok {
			found = true
		}
	}, nil)

	return found
}

