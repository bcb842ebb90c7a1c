package graphql

// Recursive-descent parser over the token stream. The parser keeps a stack
// of open brackets so that `{...}`, `(...)` and `[...]` must nest correctly;
// any close token is checked against the most recent open.

// Parse consumes a raw request body and returns the document it describes:
// its operations in order, plus fragment definitions keyed by name.
func Parse(query string) (*Document, error) {
	p := &parser{tokens: newTokenizer(query)}

	doc := &Document{Fragments: map[string]*FragmentDefinition{}}
	shorthand := true
	shorthandUsed := false

	for {
		tok, ok := p.tokens.next()
		switch {
		case !ok:
			if len(doc.Operations) == 0 {
				return nil, newParseError("unexpected end of query")
			}
			return doc, nil
		case tok == "query" || tok == "mutation" || tok == "subscription":
			shorthand = false
			next, _ := p.tokens.next()
			op, err := p.parseOperation(next, shorthand, operationTypeFromKeyword(tok))
			if err != nil {
				return nil, err
			}
			doc.Operations = append(doc.Operations, op)
		case tok == "fragment":
			frag, err := p.parseFragmentDefinition()
			if err != nil {
				return nil, err
			}
			doc.Fragments[frag.Name] = frag
		case tok == "{" && shorthand:
			shorthandUsed = true
			op, err := p.parseOperation(tok, true, OperationQuery)
			if err != nil {
				return nil, err
			}
			doc.Operations = append(doc.Operations, op)
		case tok == "{":
			return nil, newParseError("operation type is required when not in shorthand mode")
		default:
			return nil, newParseError("invalid token %q", tok)
		}

		if shorthandUsed && len(doc.Operations) > 1 {
			return nil, newParseError("only one operation allowed in shorthand mode")
		}
	}
}

func operationTypeFromKeyword(kw string) OperationType {
	switch kw {
	case "mutation":
		return OperationMutation
	case "subscription":
		return OperationSubscription
	default:
		return OperationQuery
	}
}

type parser struct {
	tokens *tokenizer

	// hierarchy is the stack of currently open brackets.
	hierarchy []string
}

func (p *parser) push(open string) {
	p.hierarchy = append(p.hierarchy, open)
}

// popMatches pops the innermost open bracket and reports whether close
// pairs with it.
func (p *parser) popMatches(close string) bool {
	if len(p.hierarchy) == 0 {
		return false
	}
	open := p.hierarchy[len(p.hierarchy)-1]
	p.hierarchy = p.hierarchy[:len(p.hierarchy)-1]
	switch close {
	case "}":
		return open == "{"
	case ")":
		return open == "("
	case "]":
		return open == "["
	}
	return false
}

// parseOperation parses one operation body. current is the token following
// the operation keyword, or the already-consumed "{" in shorthand mode.
func (p *parser) parseOperation(current string, shorthand bool, opType OperationType) (*Operation, error) {
	var name string
	var variables []Variable
	next := current

	switch {
	case current == "{":
		// Nameless operation; fields start immediately.
	case current == "":
		return nil, newParseError("unexpected end of query")
	case shorthand:
		return nil, newParseError("operation name is not allowed in shorthand mode")
	case current == "(":
		p.push("(")
		vars, err := p.parseVariables()
		if err != nil {
			return nil, err
		}
		variables = vars
		tok, ok := p.tokens.next()
		if !ok {
			return nil, newParseError("unexpected end of query")
		}
		next = tok
	case isValidName(current):
		name = current
		tok, ok := p.tokens.next()
		if !ok {
			return nil, newParseError("unexpected end of query")
		}
		switch tok {
		case "(":
			p.push("(")
			vars, err := p.parseVariables()
			if err != nil {
				return nil, err
			}
			variables = vars
			tok2, ok := p.tokens.next()
			if !ok {
				return nil, newParseError("unexpected end of query")
			}
			next = tok2
		case "{":
			next = tok
		default:
			return nil, newParseError("invalid token %q", tok)
		}
	default:
		return nil, newParseError("invalid token %q", current)
	}

	if next != "{" {
		if next == "}" {
			return nil, newParseError("unmatched brackets")
		}
		if next == "" {
			return nil, newParseError("unexpected end of query")
		}
		return nil, newParseError("invalid token %q", next)
	}

	p.push("{")
	fields, err := p.parseFields()
	if err != nil {
		return nil, err
	}

	return &Operation{
		Type:      opType,
		Name:      name,
		Variables: variables,
		SubFields: fields,
	}, nil
}

func (p *parser) parseFragmentDefinition() (*FragmentDefinition, error) {
	name, ok := p.tokens.next()
	if !ok {
		return nil, newParseError("unexpected end of query")
	}
	if !isValidName(name) {
		return nil, newParseError("invalid token %q", name)
	}

	on, ok := p.tokens.next()
	if !ok {
		return nil, newParseError("unexpected end of query")
	}
	if on != "on" {
		return nil, newParseError("invalid token %q", on)
	}

	typeName, ok := p.tokens.next()
	if !ok {
		return nil, newParseError("unexpected end of query")
	}
	if !isValidName(typeName) {
		return nil, newParseError("invalid token %q", typeName)
	}

	open, ok := p.tokens.next()
	if !ok {
		return nil, newParseError("unexpected end of query")
	}
	if open != "{" {
		return nil, newParseError("invalid token %q", open)
	}
	p.push("{")
	fields, err := p.parseFields()
	if err != nil {
		return nil, err
	}

	return &FragmentDefinition{Name: name, Type: typeName, SubFields: fields}, nil
}

func (p *parser) parseVariables() ([]Variable, error) {
	var variables []Variable

	tok, ok := p.tokens.next()
	for {
		if !ok {
			return nil, newParseError("unexpected end of query")
		}
		switch {
		case tok == ")":
			if !p.popMatches(")") {
				return nil, newParseError("unmatched brackets")
			}
			return variables, nil
		case tok == "$":
			name, nok := p.tokens.next()
			if !nok {
				return nil, newParseError("unexpected end of query")
			}
			if !isValidName(name) {
				return nil, newParseError("invalid variable name %q", name)
			}

			colon, nok := p.tokens.next()
			if !nok {
				return nil, newParseError("unexpected end of query")
			}
			if colon != ":" {
				return nil, newParseError("invalid token %q", colon)
			}

			varType, nok := p.tokens.next()
			if !nok {
				return nil, newParseError("unexpected end of query")
			}
			if !isValidType(varType) {
				return nil, newParseError("invalid type %q", varType)
			}

			variable := Variable{Name: name, Type: varType}

			tok, ok = p.tokens.next()
			if ok && tok == "=" {
				value, nok := p.tokens.next()
				if !nok {
					return nil, newParseError("unexpected end of query")
				}
				if !isValidValue(value) {
					return nil, newParseError("invalid variable value %q", value)
				}
				variable.DefaultValue = &ParameterValue{Kind: ValueScalar, Scalar: value}
				tok, ok = p.tokens.next()
			}

			variables = append(variables, variable)
		default:
			return nil, newParseError("invalid token %q", tok)
		}
	}
}

func (p *parser) parseFields() ([]*Field, error) {
	var fields []*Field
	next, ok := p.tokens.next()

	for {
		if !ok {
			return nil, newParseError("unexpected end of query")
		}

		var field *Field
		switch {
		case next == "...":
			name, nok := p.tokens.next()
			if !nok {
				return nil, newParseError("unexpected end of query")
			}
			if !isValidName(name) {
				return nil, newParseError("invalid token %q", name)
			}
			field = newFragmentSpread(name)
			next, ok = p.tokens.next()
		case isValidName(next):
			candidate := next
			next, ok = p.tokens.next()
			if !ok {
				return nil, newParseError("unexpected end of query")
			}

			var alias, name string
			if next == ":" {
				actual, nok := p.tokens.next()
				if !nok {
					return nil, newParseError("unexpected end of query")
				}
				if !isValidName(actual) {
					return nil, newParseError("invalid token %q", actual)
				}
				alias, name = candidate, actual
				next, ok = p.tokens.next()
				if !ok {
					return nil, newParseError("unexpected end of query")
				}
			} else {
				name = candidate
			}

			var parameters []Parameter
			if next == "(" {
				p.push("(")
				params, err := p.parseParameters()
				if err != nil {
					return nil, err
				}
				parameters = params
				next, ok = p.tokens.next()
				if !ok {
					return nil, newParseError("unexpected end of query")
				}
			}

			var subFields []*Field
			if next == "{" {
				p.push("{")
				flds, err := p.parseFields()
				if err != nil {
					return nil, err
				}
				subFields = flds
				next, ok = p.tokens.next()
			}

			field = newNamedField(alias, name, parameters, subFields)
		default:
			return nil, newParseError("invalid token %q", next)
		}

		fields = append(fields, field)

		if ok && next == "}" {
			if !p.popMatches("}") {
				return nil, newParseError("unmatched brackets")
			}
			return fields, nil
		}
	}
}

func (p *parser) parseParameters() ([]Parameter, error) {
	var parameters []Parameter

	for {
		tok, ok := p.tokens.next()
		if !ok {
			return nil, newParseError("unexpected end of query")
		}
		if tok == ")" {
			if len(parameters) == 0 {
				return nil, newParseError("list of parameters can't be empty")
			}
			if !p.popMatches(")") {
				return nil, newParseError("unmatched brackets")
			}
			return parameters, nil
		}
		if !isValidName(tok) {
			return nil, newParseError("invalid token %q", tok)
		}
		name := tok

		colon, ok := p.tokens.next()
		if !ok {
			return nil, newParseError("unexpected end of query")
		}
		if colon != ":" {
			return nil, newParseError("invalid token %q", colon)
		}

		value, err := p.parseParameterValue()
		if err != nil {
			return nil, err
		}

		parameters = append(parameters, Parameter{Name: name, Value: value})
	}
}

// parseParameterValue parses the value position of an argument: an object,
// a list, a $variable reference, or a scalar literal.
func (p *parser) parseParameterValue() (ParameterValue, error) {
	tok, ok := p.tokens.next()
	if !ok {
		return ParameterValue{}, newParseError("unexpected end of query")
	}
	switch {
	case tok == "{":
		p.push("{")
		return p.parseObject()
	case tok == "[":
		p.push("[")
		return p.parseList()
	case tok == "$":
		name, nok := p.tokens.next()
		if !nok {
			return ParameterValue{}, newParseError("unexpected end of query")
		}
		if !isValidName(name) {
			return ParameterValue{}, newParseError("invalid token %q", name)
		}
		return ParameterValue{Kind: ValueVariable, Variable: name}, nil
	case isValidValue(tok):
		return ParameterValue{Kind: ValueScalar, Scalar: tok}, nil
	default:
		return ParameterValue{}, newParseError("invalid token %q", tok)
	}
}

func (p *parser) parseObject() (ParameterValue, error) {
	var entries []ObjectEntry

	for {
		tok, ok := p.tokens.next()
		if !ok {
			return ParameterValue{}, newParseError("unexpected end of query")
		}
		if tok == "}" {
			if !p.popMatches("}") {
				return ParameterValue{}, newParseError("unmatched brackets")
			}
			return ParameterValue{Kind: ValueObject, Object: entries}, nil
		}
		if !isValidName(tok) {
			return ParameterValue{}, newParseError("invalid token %q", tok)
		}
		name := tok

		colon, ok := p.tokens.next()
		if !ok {
			return ParameterValue{}, newParseError("unexpected end of query")
		}
		if colon != ":" {
			return ParameterValue{}, newParseError("invalid token %q", colon)
		}

		value, err := p.parseParameterValue()
		if err != nil {
			return ParameterValue{}, err
		}

		entries = append(entries, ObjectEntry{Name: name, Value: value})
	}
}

func (p *parser) parseList() (ParameterValue, error) {
	var values []ParameterValue

	for {
		tok, ok := p.tokens.next()
		if !ok {
			return ParameterValue{}, newParseError("unexpected end of query")
		}
		switch {
		case tok == "]":
			if !p.popMatches("]") {
				return ParameterValue{}, newParseError("unmatched brackets")
			}
			return ParameterValue{Kind: ValueList, List: values}, nil
		case tok == "{":
			p.push("{")
			obj, err := p.parseObject()
			if err != nil {
				return ParameterValue{}, err
			}
			values = append(values, obj)
		case tok == "[":
			p.push("[")
			lst, err := p.parseList()
			if err != nil {
				return ParameterValue{}, err
			}
			values = append(values, lst)
		case isValidValue(tok):
			values = append(values, ParameterValue{Kind: ValueScalar, Scalar: tok})
		default:
			return ParameterValue{}, newParseError("invalid token %q", tok)
		}
	}
}

// isValidName accepts an alphabetic first character followed by
// alphanumerics and underscores.
func isValidName(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !isAlpha(r) {
				return false
			}
			continue
		}
		if !isAlphaNum(r) && r != '_' {
			return false
		}
	}
	return len(s) > 0
}

// isValidValue accepts a quoted string (first and last character must be a
// double quote) or a bare alphanumeric literal.
func isValidValue(s string) bool {
	if len(s) == 0 {
		return false
	}
	if s[0] == '"' {
		return len(s) >= 2 && s[len(s)-1] == '"'
	}
	for _, r := range s {
		if !isAlphaNum(r) {
			return false
		}
	}
	return true
}

// isValidType accepts a name with an optional trailing `!`.
func isValidType(s string) bool {
	if len(s) == 0 {
		return false
	}
	last := s[len(s)-1]
	if last == '!' {
		s = s[:len(s)-1]
	}
	return isValidName(s)
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isAlphaNum(r rune) bool {
	return isAlpha(r) || (r >= '0' && r <= '9')
}
