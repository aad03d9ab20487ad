package ast

import (
	"encoding/json"
	"fmt"

	"pyrus/report"
)

// DecodeModule decodes the JSON interchange form of a parsed module.  The
// external parser serializes each node as an object with a "kind" tag, a
// "span", and the node's fields.
func DecodeModule(data []byte) (*Module, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed AST JSON: %w", err)
	}

	if env.Kind != "Module" {
		return nil, fmt.Errorf("expected root node of kind Module, found %s", env.Kind)
	}

	body, err := decodeStmts(env.Body)
	if err != nil {
		return nil, err
	}

	return &Module{
		NodeBase: NewNodeBaseOn(env.span()),
		Name:     env.Name,
		Body:     body,
	}, nil
}

// -----------------------------------------------------------------------------

// jsonSpan mirrors report.TextSpan in the interchange form.
type jsonSpan struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// envelope carries the union of all node fields.  Only the fields relevant to
// the node's kind are populated by the parser.
type envelope struct {
	Kind string    `json:"kind"`
	Span *jsonSpan `json:"span"`

	Name       string            `json:"name"`
	ID         string            `json:"id"`
	Op         string            `json:"op"`
	Module     string            `json:"module"`
	Attr       string            `json:"attr"`
	Names      []string          `json:"names"`
	Params     []string          `json:"params"`
	IsAsync    bool              `json:"is_async"`
	Body       []json.RawMessage `json:"body"`
	OrElse     []json.RawMessage `json:"or_else"`
	Final      []json.RawMessage `json:"final"`
	Targets    []json.RawMessage `json:"targets"`
	Decorators []json.RawMessage `json:"decorators"`
	Bases      []json.RawMessage `json:"bases"`
	Args       []json.RawMessage `json:"args"`
	Keywords   []json.RawMessage `json:"keywords"`
	Handlers   []json.RawMessage `json:"handlers"`
	Items      []json.RawMessage `json:"items"`
	Elems      []json.RawMessage `json:"elems"`
	Keys       []json.RawMessage `json:"keys"`
	Values     []json.RawMessage `json:"values"`
	Ops        []string          `json:"ops"`
	Comparators []json.RawMessage `json:"comparators"`
	Clauses    []json.RawMessage `json:"clauses"`
	Ifs        []json.RawMessage `json:"ifs"`
	Parts      []json.RawMessage `json:"parts"`

	Target     json.RawMessage `json:"target"`
	Value      json.RawMessage `json:"value"`
	Annotation json.RawMessage `json:"annotation"`
	Returns    json.RawMessage `json:"returns"`
	Default    json.RawMessage `json:"default"`
	Test       json.RawMessage `json:"test"`
	Msg        json.RawMessage `json:"msg"`
	Iter       json.RawMessage `json:"iter"`
	Exc        json.RawMessage `json:"exc"`
	Cause      json.RawMessage `json:"cause"`
	Type       json.RawMessage `json:"type"`
	Context    json.RawMessage `json:"context"`
	Vars       json.RawMessage `json:"vars"`
	Left       json.RawMessage `json:"left"`
	Right      json.RawMessage `json:"right"`
	Operand    json.RawMessage `json:"operand"`
	Func       json.RawMessage `json:"func"`
	Index      json.RawMessage `json:"index"`
	Lower      json.RawMessage `json:"lower"`
	Upper      json.RawMessage `json:"upper"`
	Step       json.RawMessage `json:"step"`
	Key        json.RawMessage `json:"key"`
	Elem       json.RawMessage `json:"elem"`
	BodyExpr   json.RawMessage `json:"body_expr"`
	ElseExpr   json.RawMessage `json:"else_expr"`

	// Constant payload.  CType is one of int, float, str, bool, none.
	CType string          `json:"ctype"`
	CVal  json.RawMessage `json:"cval"`
}

func (env *envelope) span() *report.TextSpan {
	if env.Span == nil {
		return &report.TextSpan{}
	}

	return &report.TextSpan{
		StartLine: env.Span.StartLine,
		StartCol:  env.Span.StartCol,
		EndLine:   env.Span.EndLine,
		EndCol:    env.Span.EndCol,
	}
}

// -----------------------------------------------------------------------------

func decodeStmts(raws []json.RawMessage) ([]Stmt, error) {
	stmts := make([]Stmt, len(raws))

	for i, raw := range raws {
		stmt, err := decodeStmt(raw)
		if err != nil {
			return nil, err
		}

		stmts[i] = stmt
	}

	return stmts, nil
}

func decodeStmt(raw json.RawMessage) (Stmt, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed AST JSON: %w", err)
	}

	base := StmtBase{NewNodeBaseOn(env.span())}

	switch env.Kind {
	case "FunctionDef":
		args, err := decodeArgs(env.Args)
		if err != nil {
			return nil, err
		}

		returns, err := decodeOptExpr(env.Returns)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		decorators, err := decodeExprs(env.Decorators)
		if err != nil {
			return nil, err
		}

		return &FunctionDef{
			StmtBase:   base,
			Name:       env.Name,
			Args:       args,
			Returns:    returns,
			Body:       body,
			IsAsync:    env.IsAsync,
			Decorators: decorators,
		}, nil
	case "ClassDef":
		bases, err := decodeExprs(env.Bases)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		return &ClassDef{StmtBase: base, Name: env.Name, Bases: bases, Body: body}, nil
	case "Assign":
		targets, err := decodeExprs(env.Targets)
		if err != nil {
			return nil, err
		}

		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &Assign{StmtBase: base, Targets: targets, Value: value}, nil
	case "AnnAssign":
		target, err := decodeExpr(env.Target)
		if err != nil {
			return nil, err
		}

		annotation, err := decodeExpr(env.Annotation)
		if err != nil {
			return nil, err
		}

		value, err := decodeOptExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &AnnAssign{StmtBase: base, Target: target, Annotation: annotation, Value: value}, nil
	case "AugAssign":
		target, err := decodeExpr(env.Target)
		if err != nil {
			return nil, err
		}

		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &AugAssign{StmtBase: base, Target: target, Op: env.Op, Value: value}, nil
	case "If":
		test, err := decodeExpr(env.Test)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		orElse, err := decodeStmts(env.OrElse)
		if err != nil {
			return nil, err
		}

		return &If{StmtBase: base, Test: test, Body: body, OrElse: orElse}, nil
	case "While":
		test, err := decodeExpr(env.Test)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		orElse, err := decodeStmts(env.OrElse)
		if err != nil {
			return nil, err
		}

		return &While{StmtBase: base, Test: test, Body: body, OrElse: orElse}, nil
	case "For":
		target, err := decodeExpr(env.Target)
		if err != nil {
			return nil, err
		}

		iter, err := decodeExpr(env.Iter)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		orElse, err := decodeStmts(env.OrElse)
		if err != nil {
			return nil, err
		}

		return &For{StmtBase: base, Target: target, Iter: iter, Body: body, OrElse: orElse, IsAsync: env.IsAsync}, nil
	case "Return":
		value, err := decodeOptExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &Return{StmtBase: base, Value: value}, nil
	case "Raise":
		exc, err := decodeOptExpr(env.Exc)
		if err != nil {
			return nil, err
		}

		cause, err := decodeOptExpr(env.Cause)
		if err != nil {
			return nil, err
		}

		return &Raise{StmtBase: base, Exc: exc, Cause: cause}, nil
	case "Try":
		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		handlers, err := decodeHandlers(env.Handlers)
		if err != nil {
			return nil, err
		}

		orElse, err := decodeStmts(env.OrElse)
		if err != nil {
			return nil, err
		}

		final, err := decodeStmts(env.Final)
		if err != nil {
			return nil, err
		}

		return &Try{StmtBase: base, Body: body, Handlers: handlers, OrElse: orElse, Final: final}, nil
	case "With":
		items, err := decodeWithItems(env.Items)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		return &With{StmtBase: base, Items: items, Body: body}, nil
	case "Break":
		return &Break{StmtBase: base}, nil
	case "Continue":
		return &Continue{StmtBase: base}, nil
	case "ExprStmt":
		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &ExprStmt{StmtBase: base, Value: value}, nil
	case "Pass":
		return &Pass{StmtBase: base}, nil
	case "Assert":
		test, err := decodeExpr(env.Test)
		if err != nil {
			return nil, err
		}

		msg, err := decodeOptExpr(env.Msg)
		if err != nil {
			return nil, err
		}

		return &Assert{StmtBase: base, Test: test, Msg: msg}, nil
	case "Global":
		return &Global{StmtBase: base, Names: env.Names}, nil
	case "Delete":
		targets, err := decodeExprs(env.Targets)
		if err != nil {
			return nil, err
		}

		return &Delete{StmtBase: base, Targets: targets}, nil
	case "Import":
		return &Import{StmtBase: base, Module: env.Module, Names: env.Names}, nil
	default:
		return nil, fmt.Errorf("unknown statement kind: %s", env.Kind)
	}
}

func decodeArgs(raws []json.RawMessage) ([]*Arg, error) {
	args := make([]*Arg, len(raws))

	for i, raw := range raws {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("malformed AST JSON: %w", err)
		}

		annotation, err := decodeOptExpr(env.Annotation)
		if err != nil {
			return nil, err
		}

		dflt, err := decodeOptExpr(env.Default)
		if err != nil {
			return nil, err
		}

		args[i] = &Arg{Name: env.Name, Annotation: annotation, Default: dflt}
	}

	return args, nil
}

func decodeHandlers(raws []json.RawMessage) ([]*ExceptHandler, error) {
	handlers := make([]*ExceptHandler, len(raws))

	for i, raw := range raws {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("malformed AST JSON: %w", err)
		}

		excType, err := decodeOptExpr(env.Type)
		if err != nil {
			return nil, err
		}

		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}

		handlers[i] = &ExceptHandler{Type: excType, Name: env.Name, Body: body}
	}

	return handlers, nil
}

func decodeWithItems(raws []json.RawMessage) ([]*WithItem, error) {
	items := make([]*WithItem, len(raws))

	for i, raw := range raws {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("malformed AST JSON: %w", err)
		}

		context, err := decodeExpr(env.Context)
		if err != nil {
			return nil, err
		}

		vars, err := decodeOptExpr(env.Vars)
		if err != nil {
			return nil, err
		}

		items[i] = &WithItem{Context: context, Vars: vars}
	}

	return items, nil
}

// -----------------------------------------------------------------------------

func decodeExprs(raws []json.RawMessage) ([]Expr, error) {
	exprs := make([]Expr, len(raws))

	for i, raw := range raws {
		expr, err := decodeExpr(raw)
		if err != nil {
			return nil, err
		}

		exprs[i] = expr
	}

	return exprs, nil
}

func decodeOptExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	return decodeExpr(raw)
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed AST JSON: %w", err)
	}

	base := ExprBase{NewNodeBaseOn(env.span())}

	switch env.Kind {
	case "Constant":
		return decodeConstant(&env, base)
	case "Name":
		return &Name{ExprBase: base, ID: env.ID}, nil
	case "BinOp":
		left, err := decodeExpr(env.Left)
		if err != nil {
			return nil, err
		}

		right, err := decodeExpr(env.Right)
		if err != nil {
			return nil, err
		}

		return &BinOp{ExprBase: base, Left: left, Op: env.Op, Right: right}, nil
	case "BoolOp":
		values, err := decodeExprs(env.Values)
		if err != nil {
			return nil, err
		}

		return &BoolOp{ExprBase: base, Op: env.Op, Values: values}, nil
	case "Compare":
		left, err := decodeExpr(env.Left)
		if err != nil {
			return nil, err
		}

		comparators, err := decodeExprs(env.Comparators)
		if err != nil {
			return nil, err
		}

		return &Compare{ExprBase: base, Left: left, Ops: env.Ops, Comparators: comparators}, nil
	case "UnaryOp":
		operand, err := decodeExpr(env.Operand)
		if err != nil {
			return nil, err
		}

		return &UnaryOp{ExprBase: base, Op: env.Op, Operand: operand}, nil
	case "Call":
		fn, err := decodeExpr(env.Func)
		if err != nil {
			return nil, err
		}

		args, err := decodeExprs(env.Args)
		if err != nil {
			return nil, err
		}

		keywords, err := decodeKeywords(env.Keywords)
		if err != nil {
			return nil, err
		}

		return &Call{ExprBase: base, Func: fn, Args: args, Keywords: keywords}, nil
	case "Attribute":
		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &Attribute{ExprBase: base, Value: value, Attr: env.Attr}, nil
	case "Subscript":
		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		index, err := decodeExpr(env.Index)
		if err != nil {
			return nil, err
		}

		return &Subscript{ExprBase: base, Value: value, Index: index}, nil
	case "SliceExpr":
		lower, err := decodeOptExpr(env.Lower)
		if err != nil {
			return nil, err
		}

		upper, err := decodeOptExpr(env.Upper)
		if err != nil {
			return nil, err
		}

		step, err := decodeOptExpr(env.Step)
		if err != nil {
			return nil, err
		}

		return &SliceExpr{ExprBase: base, Lower: lower, Upper: upper, Step: step}, nil
	case "List":
		elems, err := decodeExprs(env.Elems)
		if err != nil {
			return nil, err
		}

		return &List{ExprBase: base, Elems: elems}, nil
	case "Dict":
		keys, err := decodeExprs(env.Keys)
		if err != nil {
			return nil, err
		}

		values, err := decodeExprs(env.Values)
		if err != nil {
			return nil, err
		}

		return &Dict{ExprBase: base, Keys: keys, Values: values}, nil
	case "Set":
		elems, err := decodeExprs(env.Elems)
		if err != nil {
			return nil, err
		}

		return &Set{ExprBase: base, Elems: elems}, nil
	case "Tuple":
		elems, err := decodeExprs(env.Elems)
		if err != nil {
			return nil, err
		}

		return &Tuple{ExprBase: base, Elems: elems}, nil
	case "ListComp":
		elem, err := decodeExpr(env.Elem)
		if err != nil {
			return nil, err
		}

		clauses, err := decodeClauses(env.Clauses)
		if err != nil {
			return nil, err
		}

		return &ListComp{ExprBase: base, Elem: elem, Clauses: clauses}, nil
	case "SetComp":
		elem, err := decodeExpr(env.Elem)
		if err != nil {
			return nil, err
		}

		clauses, err := decodeClauses(env.Clauses)
		if err != nil {
			return nil, err
		}

		return &SetComp{ExprBase: base, Elem: elem, Clauses: clauses}, nil
	case "DictComp":
		key, err := decodeExpr(env.Key)
		if err != nil {
			return nil, err
		}

		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		clauses, err := decodeClauses(env.Clauses)
		if err != nil {
			return nil, err
		}

		return &DictComp{ExprBase: base, Key: key, Value: value, Clauses: clauses}, nil
	case "GeneratorExp":
		elem, err := decodeExpr(env.Elem)
		if err != nil {
			return nil, err
		}

		clauses, err := decodeClauses(env.Clauses)
		if err != nil {
			return nil, err
		}

		return &GeneratorExp{ExprBase: base, Elem: elem, Clauses: clauses}, nil
	case "IfExp":
		test, err := decodeExpr(env.Test)
		if err != nil {
			return nil, err
		}

		body, err := decodeExpr(env.BodyExpr)
		if err != nil {
			return nil, err
		}

		orElse, err := decodeExpr(env.ElseExpr)
		if err != nil {
			return nil, err
		}

		return &IfExp{ExprBase: base, Test: test, Body: body, OrElse: orElse}, nil
	case "Lambda":
		body, err := decodeExpr(env.BodyExpr)
		if err != nil {
			return nil, err
		}

		return &Lambda{ExprBase: base, Params: env.Params, Body: body}, nil
	case "Await":
		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &Await{ExprBase: base, Value: value}, nil
	case "Yield":
		value, err := decodeOptExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &Yield{ExprBase: base, Value: value}, nil
	case "YieldFrom":
		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &YieldFrom{ExprBase: base, Value: value}, nil
	case "Starred":
		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		return &Starred{ExprBase: base, Value: value}, nil
	case "JoinedStr":
		parts, err := decodeExprs(env.Parts)
		if err != nil {
			return nil, err
		}

		return &JoinedStr{ExprBase: base, Parts: parts}, nil
	default:
		return nil, fmt.Errorf("unknown expression kind: %s", env.Kind)
	}
}

func decodeKeywords(raws []json.RawMessage) ([]*Keyword, error) {
	keywords := make([]*Keyword, len(raws))

	for i, raw := range raws {
		var env struct {
			Arg   string          `json:"arg"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("malformed AST JSON: %w", err)
		}

		value, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}

		keywords[i] = &Keyword{Arg: env.Arg, Value: value}
	}

	return keywords, nil
}

func decodeClauses(raws []json.RawMessage) ([]*Comprehension, error) {
	clauses := make([]*Comprehension, len(raws))

	for i, raw := range raws {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("malformed AST JSON: %w", err)
		}

		target, err := decodeExpr(env.Target)
		if err != nil {
			return nil, err
		}

		iter, err := decodeExpr(env.Iter)
		if err != nil {
			return nil, err
		}

		ifs, err := decodeExprs(env.Ifs)
		if err != nil {
			return nil, err
		}

		clauses[i] = &Comprehension{Target: target, Iter: iter, Ifs: ifs}
	}

	return clauses, nil
}

func decodeConstant(env *envelope, base ExprBase) (Expr, error) {
	c := &Constant{ExprBase: base}

	switch env.CType {
	case "int":
		c.Kind = ConstInt
		if err := json.Unmarshal(env.CVal, &c.IntVal); err != nil {
			return nil, fmt.Errorf("malformed int constant: %w", err)
		}
	case "float":
		c.Kind = ConstFloat
		if err := json.Unmarshal(env.CVal, &c.FloatVal); err != nil {
			return nil, fmt.Errorf("malformed float constant: %w", err)
		}
	case "str":
		c.Kind = ConstStr
		if err := json.Unmarshal(env.CVal, &c.StrVal); err != nil {
			return nil, fmt.Errorf("malformed str constant: %w", err)
		}
	case "bool":
		c.Kind = ConstBool
		if err := json.Unmarshal(env.CVal, &c.BoolVal); err != nil {
			return nil, fmt.Errorf("malformed bool constant: %w", err)
		}
	case "none":
		c.Kind = ConstNone
	default:
		return nil, fmt.Errorf("unknown constant type: %s", env.CType)
	}

	return c, nil
}
