package rule

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// A rule file describes a definition without the Go functions:
//
//	name = "expr"
//	tokens = '''
//	[0-9]+ = NUM
//	\+     = PLUS
//	[ ]+   = _
//	'''
//
//	[[precedence]]
//	assoc = "left"
//	tokens = ["PLUS"]
//
//	[[handler]]
//	start = true
//	rules = '''
//	expr
//	    : expr PLUS expr
//	    | NUM
//	'''
type ruleFile struct {
	Name       string           `toml:"name"`
	Tokens     string           `toml:"tokens"`
	Precedence []precedenceFile `toml:"precedence"`
	Handler    []handlerFile    `toml:"handler"`
}

type precedenceFile struct {
	Assoc  string   `toml:"assoc"`
	Tokens []string `toml:"tokens"`
}

type handlerFile struct {
	Rules string `toml:"rules"`
	Start bool   `toml:"start"`
}

// ReadFile loads a rule file. The handlers of the returned definition have
// no functions; bind them with Definition.Bind or Definition.BindAll.
func ReadFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the rule file %s: %w", path, err)
	}
	defer f.Close()

	def, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Decode reads a rule file from r. Unknown keys are rejected.
func Decode(r io.Reader) (*Definition, error) {
	var rf ruleFile
	meta, err := toml.NewDecoder(r).Decode(&rf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %v", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("name") {
		return nil, fmt.Errorf("missing name")
	}
	if !meta.IsDefined("tokens") {
		return nil, fmt.Errorf("missing tokens")
	}

	def := &Definition{
		Name:   strings.TrimSpace(rf.Name),
		Tokens: rf.Tokens,
	}
	for _, p := range rf.Precedence {
		def.Precedences = append(def.Precedences, &PrecedenceGroup{
			Assoc:  Assoc(p.Assoc),
			Tokens: p.Tokens,
		})
	}
	for _, h := range rf.Handler {
		hd := &Handler{
			Rules: h.Rules,
			Start: h.Start,
		}
		hd.Nonterminal = hd.name()
		def.Handlers = append(def.Handlers, hd)
	}
	return def, nil
}
