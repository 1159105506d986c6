package workflow

import (
	"fmt"
	"strconv"
)

// Expression evaluation for conditional and function nodes.
//
// Workflow authors supply small expressions rather than host-language
// code; this file implements the restricted interpreter that evaluates
// them (a tokenizer plus recursive descent parser). Supported:
//
//   - Variables from the run context: "approved", "score"
//   - Node result paths: "nodes.classify.output", "nodes.classify.status"
//   - Comparison operators: ==, !=, <, >, <=, >=
//   - Boolean operators: &&, ||, !
//   - Literals: true, false, numbers, quoted strings
//   - Parentheses for grouping
//   - Array/map indexing with []
//   - Built-in functions len(), empty(), exists(); more via RegisterFunction
//
// The interpreter never reaches outside the variable bindings handed to
// it, which is the engine's capability boundary for author-supplied
// logic.

// EvaluationContext provides the bindings visible to an expression.
type EvaluationContext struct {
	// NodeResults contains the results of executed nodes, indexed by node ID,
	// reachable through "nodes.<id>.<field>" paths.
	NodeResults map[string]*NodeResult
	// Variables contains the run context's named bindings.
	Variables map[string]any
}

// ExprFunc is a function callable from within expressions.
type ExprFunc func(args []any) (any, error)

// ExpressionEvaluator parses and evaluates author-supplied expressions.
type ExpressionEvaluator struct {
	functions map[string]ExprFunc
}

// NewExpressionEvaluator creates an evaluator with the built-in
// len/empty/exists functions registered.
func NewExpressionEvaluator() *ExpressionEvaluator {
	ev := &ExpressionEvaluator{functions: make(map[string]ExprFunc)}

	ev.RegisterFunction("len", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len() requires exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return float64(len(v)), nil
		case []any:
			return float64(len(v)), nil
		case map[string]any:
			return float64(len(v)), nil
		default:
			return nil, fmt.Errorf("len() requires string, array, or map argument")
		}
	})

	ev.RegisterFunction("empty", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("empty() requires exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return len(v) == 0, nil
		case []any:
			return len(v) == 0, nil
		case map[string]any:
			return len(v) == 0, nil
		case nil:
			return true, nil
		default:
			return false, nil
		}
	})

	ev.RegisterFunction("exists", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("exists() requires exactly 1 argument, got %d", len(args))
		}
		return args[0] != nil, nil
	})

	return ev
}

// RegisterFunction adds a custom function callable from expressions.
func (ev *ExpressionEvaluator) RegisterFunction(name string, fn ExprFunc) {
	ev.functions[name] = fn
}

// Evaluate parses and evaluates a boolean-valued expression. A result of
// any other type is an error; conditional nodes need a definite branch.
func (ev *ExpressionEvaluator) Evaluate(expr string, context *EvaluationContext) (bool, error) {
	result, err := ev.EvaluateValue(expr, context)
	if err != nil {
		return false, err
	}
	boolResult, ok := result.(bool)
	if !ok {
		return false, &WorkflowError{
			Code:    WorkflowErrorExpressionInvalid,
			Message: fmt.Sprintf("expression did not evaluate to boolean, got %T", result),
		}
	}
	return boolResult, nil
}

// EvaluateValue parses and evaluates an expression, returning whatever
// value it produces. Function nodes use this form.
func (ev *ExpressionEvaluator) EvaluateValue(expr string, context *EvaluationContext) (any, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, &WorkflowError{
			Code:    WorkflowErrorExpressionInvalid,
			Message: fmt.Sprintf("failed to tokenize expression: %v", err),
			Cause:   err,
		}
	}

	p := &exprParser{tokens: tokens, context: context, evaluator: ev}
	result, err := p.parseExpression()
	if err != nil {
		return nil, &WorkflowError{
			Code:    WorkflowErrorExpressionInvalid,
			Message: fmt.Sprintf("failed to evaluate expression: %v", err),
			Cause:   err,
		}
	}
	if p.current().typ != tokenEOF {
		return nil, &WorkflowError{
			Code:    WorkflowErrorExpressionInvalid,
			Message: fmt.Sprintf("unexpected trailing input at token %q", p.current().value),
		}
	}
	return result, nil
}

// tokenType represents the type of a lexical token
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdentifier
	tokenNumber
	tokenString
	tokenBool
	tokenDot
	tokenComma
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenEQ
	tokenNE
	tokenLT
	tokenLE
	tokenGT
	tokenGE
	tokenAnd
	tokenOr
	tokenNot
)

// token represents a lexical token
type token struct {
	typ   tokenType
	value string
}

// tokenize converts an expression string into a slice of tokens
func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(expr) {
		if expr[i] == ' ' || expr[i] == '\t' || expr[i] == '\n' || expr[i] == '\r' {
			i++
			continue
		}

		switch expr[i] {
		case '.':
			tokens = append(tokens, token{typ: tokenDot, value: "."})
			i++
			continue
		case ',':
			tokens = append(tokens, token{typ: tokenComma, value: ","})
			i++
			continue
		case '(':
			tokens = append(tokens, token{typ: tokenLParen, value: "("})
			i++
			continue
		case ')':
			tokens = append(tokens, token{typ: tokenRParen, value: ")"})
			i++
			continue
		case '[':
			tokens = append(tokens, token{typ: tokenLBracket, value: "["})
			i++
			continue
		case ']':
			tokens = append(tokens, token{typ: tokenRBracket, value: "]"})
			i++
			continue
		}

		if i+1 < len(expr) {
			switch expr[i : i+2] {
			case "==":
				tokens = append(tokens, token{typ: tokenEQ, value: "=="})
				i += 2
				continue
			case "!=":
				tokens = append(tokens, token{typ: tokenNE, value: "!="})
				i += 2
				continue
			case "<=":
				tokens = append(tokens, token{typ: tokenLE, value: "<="})
				i += 2
				continue
			case ">=":
				tokens = append(tokens, token{typ: tokenGE, value: ">="})
				i += 2
				continue
			case "&&":
				tokens = append(tokens, token{typ: tokenAnd, value: "&&"})
				i += 2
				continue
			case "||":
				tokens = append(tokens, token{typ: tokenOr, value: "||"})
				i += 2
				continue
			}
		}

		switch expr[i] {
		case '<':
			tokens = append(tokens, token{typ: tokenLT, value: "<"})
			i++
			continue
		case '>':
			tokens = append(tokens, token{typ: tokenGT, value: ">"})
			i++
			continue
		case '!':
			tokens = append(tokens, token{typ: tokenNot, value: "!"})
			i++
			continue
		}

		if expr[i] == '"' || expr[i] == '\'' {
			quote := expr[i]
			i++
			start := i
			for i < len(expr) && expr[i] != quote {
				if expr[i] == '\\' && i+1 < len(expr) {
					i += 2
				} else {
					i++
				}
			}
			if i >= len(expr) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{typ: tokenString, value: expr[start:i]})
			i++
			continue
		}

		if expr[i] >= '0' && expr[i] <= '9' {
			start := i
			for i < len(expr) && ((expr[i] >= '0' && expr[i] <= '9') || expr[i] == '.') {
				i++
			}
			tokens = append(tokens, token{typ: tokenNumber, value: expr[start:i]})
			continue
		}

		if (expr[i] >= 'a' && expr[i] <= 'z') || (expr[i] >= 'A' && expr[i] <= 'Z') || expr[i] == '_' {
			start := i
			for i < len(expr) && ((expr[i] >= 'a' && expr[i] <= 'z') ||
				(expr[i] >= 'A' && expr[i] <= 'Z') ||
				(expr[i] >= '0' && expr[i] <= '9') ||
				expr[i] == '_') {
				i++
			}
			value := expr[start:i]
			if value == "true" || value == "false" {
				tokens = append(tokens, token{typ: tokenBool, value: value})
			} else {
				tokens = append(tokens, token{typ: tokenIdentifier, value: value})
			}
			continue
		}

		return nil, fmt.Errorf("unexpected character at position %d: %c", i, expr[i])
	}

	tokens = append(tokens, token{typ: tokenEOF})
	return tokens, nil
}

// exprParser implements a recursive descent parser over the token stream
type exprParser struct {
	tokens    []token
	pos       int
	context   *EvaluationContext
	evaluator *ExpressionEvaluator
}

func (p *exprParser) current() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *exprParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *exprParser) expect(typ tokenType) error {
	if p.current().typ != typ {
		return fmt.Errorf("expected %v, got %v", typ, p.current().typ)
	}
	p.advance()
	return nil
}

// parseExpression parses the top-level expression (OR has lowest precedence)
func (p *exprParser) parseExpression() (any, error) {
	return p.parseOr()
}

func (p *exprParser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().typ == tokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		leftBool, ok := left.(bool)
		if !ok {
			return nil, fmt.Errorf("|| operator requires boolean operands")
		}
		rightBool, ok := right.(bool)
		if !ok {
			return nil, fmt.Errorf("|| operator requires boolean operands")
		}
		left = leftBool || rightBool
	}

	return left, nil
}

func (p *exprParser) parseAnd() (any, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().typ == tokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		leftBool, ok := left.(bool)
		if !ok {
			return nil, fmt.Errorf("&& operator requires boolean operands")
		}
		rightBool, ok := right.(bool)
		if !ok {
			return nil, fmt.Errorf("&& operator requires boolean operands")
		}
		left = leftBool && rightBool
	}

	return left, nil
}

func (p *exprParser) parseNot() (any, error) {
	if p.current().typ == tokenNot {
		p.advance()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		boolExpr, ok := expr.(bool)
		if !ok {
			return nil, fmt.Errorf("! operator requires boolean operand")
		}
		return !boolExpr, nil
	}
	return p.parseComparison()
}

func (p *exprParser) parseComparison() (any, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	switch tok.typ {
	case tokenEQ, tokenNE, tokenLT, tokenLE, tokenGT, tokenGE:
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return p.compare(left, right, tok.typ)
	}

	return left, nil
}

// parsePrimary parses literals, identifiers, function calls, and
// parenthesized sub-expressions.
func (p *exprParser) parsePrimary() (any, error) {
	tok := p.current()

	switch tok.typ {
	case tokenBool:
		p.advance()
		return tok.value == "true", nil

	case tokenNumber:
		p.advance()
		return strconv.ParseFloat(tok.value, 64)

	case tokenString:
		p.advance()
		return tok.value, nil

	case tokenLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	case tokenIdentifier:
		return p.parseIdentifierOrFunction()

	default:
		return nil, fmt.Errorf("unexpected token: %v", tok.typ)
	}
}

func (p *exprParser) parseIdentifierOrFunction() (any, error) {
	name := p.current().value
	p.advance()

	if p.current().typ == tokenLParen {
		return p.parseFunctionCall(name)
	}

	return p.resolvePath(name)
}

func (p *exprParser) parseFunctionCall(name string) (any, error) {
	fn, ok := p.evaluator.functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}

	p.advance() // consume '('

	var args []any
	if p.current().typ != tokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.current().typ != tokenComma {
				break
			}
			p.advance()
		}
	}

	if err := p.expect(tokenRParen); err != nil {
		return nil, err
	}

	return fn(args)
}

// resolvePath resolves a dotted path like "nodes.classify.output.label"
// or a plain variable reference, with optional [] indexing.
func (p *exprParser) resolvePath(name string) (any, error) {
	path := []string{name}

	for p.current().typ == tokenDot {
		p.advance()
		if p.current().typ != tokenIdentifier {
			return nil, fmt.Errorf("expected identifier after '.'")
		}
		path = append(path, p.current().value)
		p.advance()
	}

	for p.current().typ == tokenLBracket {
		p.advance()
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRBracket); err != nil {
			return nil, err
		}

		current, err := p.resolvePathValue(path)
		if err != nil {
			return nil, err
		}

		switch v := current.(type) {
		case map[string]any:
			indexStr, ok := index.(string)
			if !ok {
				return nil, fmt.Errorf("map index must be string")
			}
			current = v[indexStr]
		case []any:
			indexNum, ok := index.(float64)
			if !ok {
				return nil, fmt.Errorf("array index must be number")
			}
			idx := int(indexNum)
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("array index out of bounds: %d", idx)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot index %T", v)
		}

		if p.current().typ == tokenDot {
			return p.continuePathResolution(current)
		}

		return current, nil
	}

	return p.resolvePathValue(path)
}

func (p *exprParser) continuePathResolution(current any) (any, error) {
	for p.current().typ == tokenDot {
		p.advance()
		if p.current().typ != tokenIdentifier {
			return nil, fmt.Errorf("expected identifier after '.'")
		}
		fieldName := p.current().value
		p.advance()

		switch v := current.(type) {
		case map[string]any:
			current = v[fieldName]
		default:
			return nil, fmt.Errorf("cannot access field %s on %T", fieldName, v)
		}
	}
	return current, nil
}

// resolvePathValue resolves a path against the evaluation context.
// "nodes.<id>" reaches into node results; anything else is a variable.
func (p *exprParser) resolvePathValue(path []string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	var current any

	if path[0] == "nodes" {
		if len(path) < 2 {
			return nil, fmt.Errorf("nodes path requires a node ID")
		}
		if p.context.NodeResults == nil {
			return nil, fmt.Errorf("no node results available")
		}

		nodeID := path[1]
		result, ok := p.context.NodeResults[nodeID]
		if !ok {
			return nil, fmt.Errorf("node result not found: %s", nodeID)
		}

		if len(path) == 2 {
			return result, nil
		}

		fields := map[string]any{
			"status":   string(result.Status),
			"output":   result.Output,
			"duration": result.Duration.Seconds(),
		}
		if result.Error != nil {
			fields["error"] = result.Error.Message
		}
		current = fields
		path = path[2:]
	} else {
		if p.context.Variables == nil {
			return nil, fmt.Errorf("variable not found: %s", path[0])
		}
		var ok bool
		current, ok = p.context.Variables[path[0]]
		if !ok {
			return nil, fmt.Errorf("variable not found: %s", path[0])
		}
		path = path[1:]
	}

	for _, segment := range path {
		switch v := current.(type) {
		case map[string]any:
			current = v[segment]
		default:
			return nil, fmt.Errorf("cannot access field %s on %T", segment, v)
		}
		if current == nil {
			return nil, nil
		}
	}

	return current, nil
}

func (p *exprParser) compare(left, right any, op tokenType) (bool, error) {
	switch op {
	case tokenEQ:
		return looseEquals(left, right), nil
	case tokenNE:
		return !looseEquals(left, right), nil
	case tokenLT, tokenLE, tokenGT, tokenGE:
		return compareOrdered(left, right, op)
	default:
		return false, fmt.Errorf("unknown comparison operator: %v", op)
	}
}

// looseEquals checks equality with numeric coercion, so `5 == "5"` and
// `int(5) == float64(5)` both hold.
func looseEquals(left, right any) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	if ln, lok := toNumber(left); lok {
		if rn, rok := toNumber(right); rok {
			return ln == rn
		}
	}

	switch l := left.(type) {
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	default:
		return false
	}
}

// strictEquals requires matching dynamic types as well as values.
func strictEquals(left, right any) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}
	if fmt.Sprintf("%T", left) != fmt.Sprintf("%T", right) {
		return false
	}
	return looseEquals(left, right)
}

func compareOrdered(left, right any, op tokenType) (bool, error) {
	leftNum, leftOk := toNumber(left)
	rightNum, rightOk := toNumber(right)

	if !leftOk || !rightOk {
		leftStr, leftStrOk := left.(string)
		rightStr, rightStrOk := right.(string)
		if !leftStrOk || !rightStrOk {
			return false, fmt.Errorf("cannot compare %T and %T", left, right)
		}
		switch op {
		case tokenLT:
			return leftStr < rightStr, nil
		case tokenLE:
			return leftStr <= rightStr, nil
		case tokenGT:
			return leftStr > rightStr, nil
		case tokenGE:
			return leftStr >= rightStr, nil
		}
	}

	switch op {
	case tokenLT:
		return leftNum < rightNum, nil
	case tokenLE:
		return leftNum <= rightNum, nil
	case tokenGT:
		return leftNum > rightNum, nil
	case tokenGE:
		return leftNum >= rightNum, nil
	default:
		return false, fmt.Errorf("unknown comparison operator: %v", op)
	}
}

// toNumber attempts to convert a value to float64
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if num, err := strconv.ParseFloat(val, 64); err == nil {
			return num, true
		}
	}
	return 0, false
}
