package config

import (
	"strings"

	"github.com/cbld/cbld/internal/diag"
)

// substState is the substitution-map view guard.go and document.go need:
// resolve values and fold in <dict> elements as they're discovered. It
// wraps a model.SubstitutionMap plus the fixed-point reconciliation
// pass over dict values that reference other dict keys.
type substState struct {
	sub *subMap
}

// evalGuardRaw substitutes {key} tokens in expr, then evaluates the
// resulting if-grammar string against no further variable lookups: the
// grammar operates purely on already-substituted literals. Used for
// <include> guards, which must be evaluated before the enclosing
// document's general substitution pass reaches them.
func evalGuardRaw(expr string, subs *substState) (bool, error) {
	substituted, err := subs.sub.substitute(expr)
	if err != nil {
		return false, err
	}
	return evalGuard(substituted)
}

// guardParser is a recursive-descent parser that reads an
// already-substituted guard expression directly, without a separate
// tokenizing pass. Values are anything that isn't one of the fixed operator
// spellings; "==" / "!=" and the ";and;" / ";or;" separators are never
// ambiguous with value content because the grammar treats the entire
// remaining span between separators as one value token.
type guardParser struct {
	expr string
	pos  int
}

// evalGuard implements the if-guard grammar:
//
//	expr   := term ( ";or;" term )*
//	term   := atom ( ";and;" atom )*
//	atom   := "(" expr ")" | comparison | truthy
//	comparison := value OP value
//	OP     := "==" | "!="
//	truthy := value
func evalGuard(expr string) (bool, error) {
	p := &guardParser{expr: expr}
	v, err := p.parseExpr()
	if err != nil {
		return false, err
	}
	p.skipSpace()
	if p.pos != len(p.expr) {
		return false, diag.IfSyntaxErrorf(expr, "unexpected trailing input at offset %d", p.pos)
	}
	return v, nil
}

func (p *guardParser) parseExpr() (bool, error) {
	v, err := p.parseTerm()
	if err != nil {
		return false, err
	}
	for p.consumeSep(";or;") {
		rhs, err := p.parseTerm()
		if err != nil {
			return false, err
		}
		v = v || rhs
	}
	return v, nil
}

func (p *guardParser) parseTerm() (bool, error) {
	v, err := p.parseAtom()
	if err != nil {
		return false, err
	}
	for p.consumeSep(";and;") {
		rhs, err := p.parseAtom()
		if err != nil {
			return false, err
		}
		v = v && rhs
	}
	return v, nil
}

func (p *guardParser) parseAtom() (bool, error) {
	p.skipSpace()
	if p.pos < len(p.expr) && p.expr[p.pos] == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return false, err
		}
		p.skipSpace()
		if p.pos >= len(p.expr) || p.expr[p.pos] != ')' {
			return false, diag.IfSyntaxErrorf(p.expr, "missing closing paren at offset %d", p.pos)
		}
		p.pos++
		return v, nil
	}
	return p.parseComparisonOrTruthy()
}

// parseComparisonOrTruthy consumes a value span up to the next
// structural token (";and;", ";or;", ")" or end of input), then checks
// whether it contains a top-level "==" or "!=" splitting it into a
// comparison; otherwise it's a bare truthy value.
func (p *guardParser) parseComparisonOrTruthy() (bool, error) {
	span := p.readValueSpan()
	// An empty span is a legitimate value (a {key} that substituted to
	// the empty string), not a syntax error; isTruthy handles it.
	if lhs, rhs, ok := strings.Cut(span, "=="); ok {
		return lhs == rhs, nil
	}
	if lhs, rhs, ok := strings.Cut(span, "!="); ok {
		return lhs != rhs, nil
	}
	return isTruthy(span), nil
}

// readValueSpan consumes characters until it sees ";and;", ";or;", an
// unmatched ")", or the closing paren of the atom currently being
// parsed. It does not itself balance parens deeper than depth zero,
// since values never legitimately contain parens.
func (p *guardParser) readValueSpan() string {
	start := p.pos
	for p.pos < len(p.expr) {
		if strings.HasPrefix(p.expr[p.pos:], ";and;") || strings.HasPrefix(p.expr[p.pos:], ";or;") {
			break
		}
		if p.expr[p.pos] == ')' {
			break
		}
		p.pos++
	}
	return strings.TrimSpace(p.expr[start:p.pos])
}

func (p *guardParser) consumeSep(sep string) bool {
	save := p.pos
	p.skipSpace()
	if strings.HasPrefix(p.expr[p.pos:], sep) {
		p.pos += len(sep)
		return true
	}
	p.pos = save
	return false
}

func (p *guardParser) skipSpace() {
	for p.pos < len(p.expr) && (p.expr[p.pos] == ' ' || p.expr[p.pos] == '\t') {
		p.pos++
	}
}

// isTruthy implements the truthy rule: non-empty and not "0".
func isTruthy(v string) bool {
	return v != "" && v != "0"
}
