package parser

type TokenType int

const (
	CODE TokenType = iota
	NUMBER
	IDENT
	LPAREN
	RPAREN
	SEMICOLON

	INVALID
	EOF
)

func (t TokenType) String() string {
	switch t {
	case CODE:
		return "CODE"
	case NUMBER:
		return "NUMBER"
	case IDENT:
		return "IDENT"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case SEMICOLON:
		return "SEMICOLON"
	case INVALID:
		return "INVALID"
	case EOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

type Token struct {
	Type     TokenType
	Value    string
	Position int
}

func createToken(t TokenType, value string, start int) Token {
	return Token{
		Type:     t,
		Value:    value,
		Position: start,
	}
}
