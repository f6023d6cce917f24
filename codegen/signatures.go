package codegen

import (
	"sort"
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/pontaoski/kaleigo/parser"
	"github.com/pontaoski/kaleigo/types"
	"gopkg.in/yaml.v2"
)

// SignatureSymbol is the global holding a module's signature table.
const SignatureSymbol = "__kaleido_signatures"

// Signatures describes what a compiled module defines, so a host can call
// into it without the source.
type Signatures struct {
	Package   string              `yaml:"package"`
	Functions map[string][]string `yaml:"functions"`
	Externs   []string            `yaml:"externs,omitempty"`
	Globals   []string            `yaml:"globals,omitempty"`
}

func (g *Generator) Signatures() Signatures {
	s := Signatures{
		Package:   g.pkg,
		Functions: map[string][]string{},
	}

	for name, fn := range g.funcs {
		if strings.HasPrefix(name, parser.AnonymousPrefix) {
			continue
		}
		if len(fn.Blocks) == 0 {
			s.Externs = append(s.Externs, name)
			continue
		}
		proto, err := g.Env().LookupFunction(name, types.Span{})
		if err != nil {
			continue
		}
		s.Functions[name] = append([]string{}, proto.Params...)
	}
	for name := range g.globals {
		s.Globals = append(s.Globals, name)
	}

	sort.Strings(s.Externs)
	sort.Strings(s.Globals)
	return s
}

func (g *Generator) registerSignatures() error {
	data, err := yaml.Marshal(g.Signatures())
	if err != nil {
		return err
	}

	gv := g.Module.NewGlobalDef(SignatureSymbol, constant.NewCharArray(append(data, 0)))
	gv.Immutable = true
	return nil
}

func ParseSignatures(data string) (s Signatures, err error) {
	err = yaml.Unmarshal([]byte(data), &s)
	return
}
