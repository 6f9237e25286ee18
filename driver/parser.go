package driver

import (
	"fmt"
)

type ParserOption func(p *Parser) error

// SemanticAction registers the action set the parser calls. Without one the
// parser only recognizes its input.
func SemanticAction(semAct SemanticActionSet) ParserOption {
	return func(p *Parser) error {
		p.semAct = semAct
		return nil
	}
}

// Parser is an LR driver. It stops at the first error; there is no error
// recovery.
type Parser struct {
	toks       TokenStream
	gram       Grammar
	stateStack *stateStack
	semAct     SemanticActionSet
}

func NewParser(toks TokenStream, gram Grammar, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		toks:       toks,
		gram:       gram,
		stateStack: &stateStack{},
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Parser) Parse() error {
	p.stateStack.push(p.gram.InitialState())
	tok, err := p.nextToken()
	if err != nil {
		return err
	}

	for {
		act, err := p.lookupAction(tok)
		if err != nil {
			return err
		}
		switch {
		case act < 0: // Shift
			p.stateStack.push(act * -1)

			if p.semAct != nil {
				if err := p.semAct.Shift(tok); err != nil {
					return err
				}
			}

			tok, err = p.nextToken()
			if err != nil {
				return err
			}
		case act > 0: // Reduce
			accepted, err := p.reduce(act)
			if err != nil {
				return err
			}
			if accepted {
				if p.semAct != nil {
					return p.semAct.Accept()
				}
				return nil
			}

			if p.semAct != nil {
				if err := p.semAct.Reduce(act); err != nil {
					return err
				}
			}
		default: // Error
			return p.syntaxError(tok)
		}
	}
}

func (p *Parser) nextToken() (VToken, error) {
	tok, err := p.toks.Next()
	if err != nil {
		return nil, err
	}
	if tok.Invalid() {
		row, col := tok.Position()
		return nil, &LexicalError{
			Row:     row,
			Col:     col,
			Text:    string(tok.Lexeme()),
			Context: p.context(),
		}
	}
	return tok, nil
}

func (p *Parser) tokenToTerminal(tok VToken) int {
	if tok.EOF() {
		return p.gram.EOF()
	}

	return tok.TerminalID()
}

func (p *Parser) lookupAction(tok VToken) (int, error) {
	return p.gram.Action(p.stateStack.top(), p.tokenToTerminal(tok))
}

func (p *Parser) reduce(prodNum int) (bool, error) {
	lhs := p.gram.LHS(prodNum)
	if lhs == p.gram.LHS(p.gram.StartProduction()) {
		return true, nil
	}
	n := p.gram.AlternativeSymbolCount(prodNum)
	p.stateStack.pop(n)
	nextState, err := p.gram.GoTo(p.stateStack.top(), lhs)
	if err != nil {
		return false, err
	}
	if nextState == 0 {
		return false, fmt.Errorf("no GOTO entry; state: %v, nonterminal: %v", p.stateStack.top(), p.gram.NonTerminal(lhs))
	}
	p.stateStack.push(nextState)
	return false, nil
}

func (p *Parser) syntaxError(tok VToken) error {
	row, col := tok.Position()
	expected, err := p.searchLookahead(p.stateStack.top())
	if err != nil {
		return err
	}
	term := p.tokenToTerminal(tok)
	return &SyntaxError{
		Row:               row,
		Col:               col,
		Text:              string(tok.Lexeme()),
		EOF:               tok.EOF(),
		Terminal:          p.gram.Terminal(term),
		ExpectedTerminals: expected,
		Context:           p.context(),
	}
}

func (p *Parser) context() *SourceContext {
	lc, ok := p.toks.(lineContext)
	if !ok {
		return nil
	}
	line, prefix := lc.Context()
	return &SourceContext{
		Line:   line,
		Prefix: prefix,
	}
}

func (p *Parser) searchLookahead(state int) ([]string, error) {
	kinds := []string{}
	termCount := p.gram.TerminalCount()
	for term := 0; term < termCount; term++ {
		act, err := p.gram.Action(state, term)
		if err != nil {
			return nil, err
		}
		if act == 0 {
			continue
		}
		kinds = append(kinds, p.gram.Terminal(term))
	}

	return kinds, nil
}

type stateStack struct {
	items []int
}

func (s *stateStack) top() int {
	return s.items[len(s.items)-1]
}

func (s *stateStack) push(state int) {
	s.items = append(s.items, state)
}

func (s *stateStack) pop(n int) {
	s.items = s.items[:len(s.items)-n]
}
