package ir

// BinOpKind enumerates the binary operators the grammar accepts.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

// UnaryOpKind enumerates the unary operators.
type UnaryOpKind int

const (
	OpNegate UnaryOpKind = iota
	OpNot
)

// LoopControlKind distinguishes break from continue.
type LoopControlKind int

const (
	CtrlBreak LoopControlKind = iota
	CtrlContinue
)

// IORedirectionKind enumerates the redirection forms recognised by the
// generator; currently only a Bash pipe.
type IORedirectionKind int

const (
	RedirPipe IORedirectionKind = iota
)

// ---------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------

// Module owns the whole compiled unit: every Function (including the
// synthetic main), every module-level global Assignment, the absolute
// path on disk, and the namespace id derived from the file's basename.
type Module struct {
	base
	Path            string
	NamespaceID     string
	Functions       []*Function
	GlobalVariables []*Assignment
	Main            *Function
	Imports         []*ImportStatement
}

func (m *Module) Accept(v Visitor) { v.VisitModule(m) }

// FindFunction returns the function with the given qualified name, or nil.
func (m *Module) FindFunction(name Name) *Function {
	for _, f := range m.Functions {
		if f.Name.Equal(name) {
			return f
		}
	}
	return nil
}

// ---------------------------------------------------------------------
// Block
// ---------------------------------------------------------------------

// Block is an ordered sequence of statements with an associated nested
// symbol-table scope at parse time.
type Block struct {
	base
	Statements []Node
}

func (b *Block) Accept(v Visitor) { v.VisitBlock(b) }

// Append appends stmt to the block's statement list.
func (b *Block) Append(stmt Node) { b.Statements = append(b.Statements, stmt) }

// InsertBefore inserts stmt immediately before the statement at index idx.
func (b *Block) InsertBefore(idx int, stmt Node) {
	b.Statements = append(b.Statements, nil)
	copy(b.Statements[idx+1:], b.Statements[idx:])
	b.Statements[idx] = stmt
}

// IndexOf returns the index of stmt in the block, or -1.
func (b *Block) IndexOf(stmt Node) int {
	for i, s := range b.Statements {
		if s == stmt {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------
// Variable / Location
// ---------------------------------------------------------------------

// Variable is a declared symbol: a name plus its inferred type. When the
// variable holds an Array, the element type is that Type's Elem.
type Variable struct {
	base
	Name Name
	// Global is set by the parser's global-variable extraction pass.
	Global bool
	// RefSurrogate is set by the by-reference lowering pass for Array(_)
	// formal parameters: the synthesized global variable that stands in
	// for this parameter at the Bash level.
	RefSurrogate *Variable
}

func (v *Variable) Accept(vi Visitor) { vi.VisitVariable(v) }

// Location is (Variable, optional index expression). A nil Index means
// scalar access; a non-nil Index means array-element access.
type Location struct {
	base
	Variable *Variable
	Index    Node // Expr, or nil
}

func (l *Location) Accept(v Visitor) { v.VisitLocation(l) }

// ---------------------------------------------------------------------
// Function / FunctionCall
// ---------------------------------------------------------------------

// Function owns a qualified name, its formal argument list, and an
// optional body. A nil Body marks a forward declaration (a "dummy"),
// created when a call site is parsed before the definition.
type Function struct {
	base
	Name Name
	Args []*Variable
	Body *Block
	// RetVal is set by the return-value lowering pass for functions that
	// contain a `return expr`: the synthesized global variable that
	// carries the function's result back to its caller.
	RetVal *Variable
	// RetType is set by the type checker from the function's
	// ReturnStatements; Undef if it never returns a value.
	RetType Type
}

func (f *Function) Accept(v Visitor) { v.VisitFunction(f) }

// IsDummy reports whether f has not yet been given a body.
func (f *Function) IsDummy() bool { return f.Body == nil }

// FunctionCall's Args are lowered to Assignments during parsing: each
// argument expression is hoisted into a freshly named local variable via
// an Assignment inserted just before the call site, and the call retains
// those Assignments so later passes see only local-variable references.
type FunctionCall struct {
	base
	Target *Function
	Args   []*Assignment
	// Wrapped is set by the return-value pass's IORedirection blacklist:
	// true when this call already runs inside an IORedirection subshell,
	// so the return-value hoisting pass must not touch it.
	Wrapped bool
}

func (c *FunctionCall) Accept(v Visitor) { v.VisitFunctionCall(c) }

// ArgVariables returns the local variables the call's arguments were
// hoisted into, in order.
func (c *FunctionCall) ArgVariables() []*Variable {
	vars := make([]*Variable, len(c.Args))
	for i, a := range c.Args {
		vars[i] = a.Target.Variable
	}
	return vars
}

// ---------------------------------------------------------------------
// ExternCall / InterpolatedString
// ---------------------------------------------------------------------

// InterpolatedStringItem is one fragment of an interpolated string: either
// a literal run of text or a variable reference.
type InterpolatedStringItem struct {
	Literal  string
	Variable *Variable // nil when this item is a literal
	// Raw holds a `$( ... )` sub-expression's raw shell text verbatim,
	// used by ExternCall bodies; empty otherwise.
	Raw string
}

// InterpolatedString is an ordered sequence of literal/variable items.
type InterpolatedString struct {
	Items []InterpolatedStringItem
}

// ExternCall is a raw shell fragment embedded in Bish as `@( ... )`,
// emitted verbatim with variables interpolated.
type ExternCall struct {
	base
	Body InterpolatedString
}

func (e *ExternCall) Accept(v Visitor) { v.VisitExternCall(e) }

// IORedirection is a `left | right` pipe between two expressions (extern
// calls or function calls) that must run inside a subshell; the
// return-value pass's blacklist
// treats calls inside it specially because the global retval protocol
// does not propagate out of a subshell.
type IORedirection struct {
	base
	Kind IORedirectionKind
	Left Node
	Right Node
}

func (r *IORedirection) Accept(v Visitor) { v.VisitIORedirection(r) }

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

// Assignment binds a Location to one or more value expressions: length 1
// is a scalar assignment, length >1 is an array initialiser.
type Assignment struct {
	base
	Target *Location
	Values []Node
}

func (a *Assignment) Accept(v Visitor) { v.VisitAssignment(a) }

// IsArrayInit reports whether this assignment initialises an array
// (either multiple values, or a single value whose type is an array).
func (a *Assignment) IsArrayInit() bool {
	if len(a.Values) > 1 {
		return true
	}
	if len(a.Values) == 1 && a.Values[0].Type().IsArray() {
		return true
	}
	return false
}

// ImportStatement names another compilation unit to link in.
type ImportStatement struct {
	base
	Name string
	// Resolved is filled in by the import linker once the referenced
	// module has been parsed and merged.
	Resolved *Module
}

func (i *ImportStatement) Accept(v Visitor) { v.VisitImportStatement(i) }

// ReturnStatement optionally carries a value. The return-value lowering
// pass replaces `return expr` with an assignment to a global retval
// followed by a value-less return, except when expr is itself an
// ExternCall, which the pass deliberately leaves alone.
type ReturnStatement struct {
	base
	Value Node // nil for a bare `return`
}

func (r *ReturnStatement) Accept(v Visitor) { v.VisitReturnStatement(r) }

// LoopControlStatement is `break` or `continue`.
type LoopControlStatement struct {
	base
	Kind LoopControlKind
}

func (l *LoopControlStatement) Accept(v Visitor) { v.VisitLoopControlStatement(l) }

// PredicatedBlock pairs a condition expression with a body block; used by
// IfStatement's else-if chain.
type PredicatedBlock struct {
	Condition Node
	Body      *Block
}

// IfStatement is `if (cond) block {else if (cond) block} [else block]`.
type IfStatement struct {
	base
	Condition Node
	Then      *Block
	ElseIfs   []PredicatedBlock
	Else      *Block // nil when absent
}

func (s *IfStatement) Accept(v Visitor) { v.VisitIfStatement(s) }

// ForLoop is `for (v in atom [..atom]) block`. When Upper is nil, Lower is
// the iterable (an array-typed Location/expr); when Upper is non-nil,
// Lower and Upper are the bounds of an integer range.
type ForLoop struct {
	base
	Var   *Variable
	Lower Node
	Upper Node // nil for iteration over an array
	Body  *Block
}

func (f *ForLoop) Accept(v Visitor) { v.VisitForLoop(f) }

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

// BinOp is a binary operator expression.
type BinOp struct {
	base
	Op          BinOpKind
	Left, Right Node
}

func (b *BinOp) Accept(v Visitor) { v.VisitBinOp(b) }

// IsComparison reports whether Op is a comparison/equality operator
// (one that the generator must brace-wrap, not arithmetic-wrap).
func (b *BinOp) IsComparison() bool {
	switch b.Op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

// IsLogical reports whether Op is `and`/`or`.
func (b *BinOp) IsLogical() bool {
	return b.Op == OpAnd || b.Op == OpOr
}

// UnaryOp is a unary operator expression.
type UnaryOp struct {
	base
	Op      UnaryOpKind
	Operand Node
}

func (u *UnaryOp) Accept(v Visitor) { v.VisitUnaryOp(u) }

// IntegerLit is an integer literal.
type IntegerLit struct {
	base
	Value int64
}

func (i *IntegerLit) Accept(v Visitor) { v.VisitIntegerLit(i) }

// FractionalLit is a fractional (floating-point) literal.
type FractionalLit struct {
	base
	Value float64
}

func (f *FractionalLit) Accept(v Visitor) { v.VisitFractionalLit(f) }

// StringLit is a `"..."` literal, which may itself be interpolated.
type StringLit struct {
	base
	Value InterpolatedString
}

func (s *StringLit) Accept(v Visitor) { v.VisitStringLit(s) }

// BooleanLit is `true` or `false`.
type BooleanLit struct {
	base
	Value bool
}

func (b *BooleanLit) Accept(v Visitor) { v.VisitBooleanLit(b) }
