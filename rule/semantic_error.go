package rule

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoName             = newSemanticError("a definition needs a name")
	semErrInvalidName        = newSemanticError("a definition name must be a lowercase snake_case identifier, such as `json` or `expr_v2`")
	semErrNoTokenRule        = newSemanticError("a lexer table needs at least one token rule")
	semErrMalformedTokenRule = newSemanticError("a token rule must be of the form `<pattern> = <TOKEN>`")
	semErrEmptyPattern       = newSemanticError("a token rule needs a pattern")
	semErrInvalidTokenName   = newSemanticError("invalid token name")
	semErrInvalidDiscardName = newSemanticError("invalid discard action name")
	semErrUndefinedDiscard   = newSemanticError("undefined discard action")
	semErrNilDiscard         = newSemanticError("a discard action needs a function")
	semErrUnusedToken        = newSemanticError("unused token")
	semErrNoHandler          = newSemanticError("a definition needs at least one handler")
	semErrNilHandlerFunc     = newSemanticError("a handler needs a function")
	semErrNoProductionName   = newSemanticError("a grammar fragment must start with a nonterminal name")
	semErrInvalidSymbolName  = newSemanticError("invalid symbol name")
	semErrNoColon            = newSemanticError("the first alternative must be led by ':'")
	semErrStrayColon         = newSemanticError("only the first alternative can be led by ':'")
	semErrMalformedAlt       = newSemanticError("an alternative must be led by ':' or '|'")
	semErrNoAlternative      = newSemanticError("a grammar fragment needs at least one alternative")
	semErrHandlerMismatch    = newSemanticError("the grammar fragment reduces a nonterminal other than the handler's")
	semErrDuplicateHandler   = newSemanticError("a nonterminal can be bound to only one handler")
	semErrDuplicateAlt       = newSemanticError("duplicate alternative")
	semErrStartCount         = newSemanticError("a definition needs exactly one start handler")
	semErrUndefinedSym       = newSemanticError("undefined symbol")
	semErrDuplicateName      = newSemanticError("duplicate names are not allowed between tokens and nonterminals")
	semErrUnusedNonterminal  = newSemanticError("unused nonterminal")
	semErrInvalidAssoc       = newSemanticError("associativity must be one of left, right, or nonassoc")
	semErrEmptyPrecGroup     = newSemanticError("a precedence group needs at least one token")
	semErrPrecUndefinedToken = newSemanticError("a precedence group can contain only defined tokens")
	semErrDuplicatePrec      = newSemanticError("a token can appear in only one precedence group")
)
