package parser

import (
	"strconv"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// Parse converts an operation sequence such as "R1(A)W2(A)C1;C2;" into typed
// operations. Empty or blank input yields an empty slice. On any malformed
// token the whole parse fails and no operations are returned.
func Parse(input string) ([]operation.Operation, error) {
	p := &Parser{lexer: NewLexer(input)}

	ops, positions, err := p.parseSequence()
	if err != nil {
		return nil, err
	}

	if err := validateSequence(ops, positions); err != nil {
		return nil, err
	}
	return ops, nil
}

// Parser turns the lexer's token stream into operations.
type Parser struct {
	lexer *Lexer
}

func (p *Parser) parseSequence() ([]operation.Operation, []int, error) {
	ops := make([]operation.Operation, 0)
	positions := make([]int, 0)

	for {
		tok := p.lexer.NextToken()
		switch tok.Type {
		case EOF:
			return ops, positions, nil
		case SEMICOLON:
			// Tolerate empty statements such as ";;" or a leading ";".
			continue
		case CODE:
			op, err := p.parseOperation(tok)
			if err != nil {
				return nil, nil, err
			}
			op.Index = len(ops)
			ops = append(ops, op)
			positions = append(positions, tok.Position)
		case NUMBER:
			return nil, nil, dberr.NewParseError(tok.Position, "expected operation code, got number %q", tok.Value)
		default:
			return nil, nil, dberr.NewParseError(tok.Position, "unexpected %q", tok.Value)
		}
	}
}

func (p *Parser) parseOperation(codeTok Token) (operation.Operation, error) {
	kind, ok := operation.KindFromCode(codeTok.Value)
	if !ok {
		return operation.Operation{}, dberr.NewParseError(codeTok.Position, "unknown operation code %q", codeTok.Value).
			WithHint("valid codes are R, W, C, A, S, SL, XL, UPL, UL")
	}

	tid, err := p.parseTransactionID(codeTok)
	if err != nil {
		return operation.Operation{}, err
	}

	resource, resPos, err := p.parseResource()
	if err != nil {
		return operation.Operation{}, err
	}

	if kind.NeedsResource() && resource == primitives.NoResource {
		return operation.Operation{}, dberr.NewParseError(codeTok.Position, "%s%d requires a resource", kind, tid)
	}
	if !kind.NeedsResource() && resource != primitives.NoResource {
		return operation.Operation{}, dberr.NewParseError(resPos, "%s%d does not take a resource", kind, tid)
	}

	if p.lexer.PeekToken().Type == SEMICOLON {
		p.lexer.NextToken()
	}

	return operation.New(kind, tid, resource), nil
}

func (p *Parser) parseTransactionID(codeTok Token) (primitives.TransactionID, error) {
	tok := p.lexer.NextToken()
	if tok.Type != NUMBER {
		return 0, dberr.NewParseError(tok.Position, "expected transaction id after %q, got %q", codeTok.Value, tok.Value)
	}

	id, err := strconv.Atoi(tok.Value)
	if err != nil {
		return 0, dberr.NewParseError(tok.Position, "transaction id %q out of range", tok.Value)
	}

	tid := primitives.TransactionID(id)
	if !tid.IsValid() {
		return 0, dberr.NewParseError(tok.Position, "transaction id must be positive")
	}
	return tid, nil
}

// parseResource consumes an optional "(name)". It returns NoResource when the
// next token is not a left parenthesis.
func (p *Parser) parseResource() (primitives.ResourceID, int, error) {
	if p.lexer.PeekToken().Type != LPAREN {
		return primitives.NoResource, -1, nil
	}
	open := p.lexer.NextToken()

	tok := p.lexer.NextToken()
	switch tok.Type {
	case IDENT:
	case RPAREN:
		return primitives.NoResource, tok.Position, dberr.NewParseError(tok.Position, "empty resource name")
	default:
		return primitives.NoResource, tok.Position, dberr.NewParseError(tok.Position, "invalid resource name %q", tok.Value)
	}

	closing := p.lexer.NextToken()
	if closing.Type != RPAREN {
		return primitives.NoResource, tok.Position, dberr.NewParseError(open.Position, "unbalanced parenthesis")
	}
	return primitives.ResourceID(tok.Value), tok.Position, nil
}

// validateSequence enforces the per-transaction ordering rules that a
// token-level grammar cannot express.
func validateSequence(ops []operation.Operation, positions []int) error {
	terminated := make(map[primitives.TransactionID]operation.Kind)
	seen := make(map[primitives.TransactionID]bool)

	for i, op := range ops {
		if kind, done := terminated[op.TxID]; done {
			return dberr.NewParseError(positions[i], "%s after %s%d", op, kind, int(op.TxID)).
				WithHint("a transaction may not issue operations after its commit or abort")
		}
		if op.Kind == operation.Begin && seen[op.TxID] {
			return dberr.NewParseError(positions[i], "%s must be the first operation of %s", op, op.TxID)
		}

		seen[op.TxID] = true
		if op.Kind.IsTerminal() {
			terminated[op.TxID] = op.Kind
		}
	}
	return nil
}
