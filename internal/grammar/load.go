package grammar

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// LoadError reports a problem in a grammar override file.
type LoadError struct {
	Token   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Token, e.Message)
	}
	if e.Token == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Token, e.Message)
}

// File formats accepted by Load.
const (
	FormatYAML = "yaml"
	FormatCUE  = "cue"
)

// LoadFile reads a YAML or CUE override file and extends base with its entries.
// The format is chosen by extension: .yaml/.yml or .cue.
func LoadFile(path string, base *Table) (*Table, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar file: %w", err)
	}
	return Load(path, data, format, base)
}

// FormatForPath picks the override format from a file extension.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{Message: fmt.Sprintf("unsupported grammar file extension: %s", path)}
	}
}

// Load parses override entries from data and extends base with them.
//
// The document maps token names to either a string (a Literal) or an object
// with "template" and "args" (an Operator):
//
//	quoteIdentLeft: "`"
//	ILIKE:
//	  template: "? ILIKE ?"
//	  args: [key, value]
func Load(name string, data []byte, format string, base *Table) (*Table, error) {
	var (
		entries map[Token]Entry
		err     error
	)
	switch format {
	case FormatYAML:
		entries, err = parseYAML(data)
	case FormatCUE:
		entries, err = parseCUE(name, data)
	default:
		return nil, &LoadError{Message: fmt.Sprintf("unsupported grammar format %q", format)}
	}
	if err != nil {
		return nil, err
	}
	if base == nil {
		base = Standard()
	}
	return base.Extend(entries), nil
}

// entryDoc is the YAML shape of one override entry.
type entryDoc struct {
	literal *string
	op      *operatorDoc
}

type operatorDoc struct {
	Template string   `yaml:"template"`
	Args     []string `yaml:"args"`
}

// UnmarshalYAML accepts either a scalar string or a template/args mapping.
func (d *entryDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		d.literal = &s
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch key := node.Content[i].Value; key {
			case "template", "args":
			default:
				return fmt.Errorf("line %d: unknown field %q", node.Content[i].Line, key)
			}
		}
		var op operatorDoc
		if err := node.Decode(&op); err != nil {
			return err
		}
		d.op = &op
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a string or a template/args mapping", node.Line)
	}
}

func parseYAML(data []byte) (map[Token]Entry, error) {
	var raw map[string]entryDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&raw); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	entries := make(map[Token]Entry, len(raw))
	for _, name := range sortedKeys(raw) {
		doc := raw[name]
		if doc.literal != nil {
			entries[Token(name)] = Literal(*doc.literal)
			continue
		}
		op, err := buildOperator(name, doc.op.Template, doc.op.Args)
		if err != nil {
			return nil, err
		}
		entries[Token(name)] = op
	}
	return entries, nil
}

func parseCUE(name string, data []byte) (map[Token]Entry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	entries := make(map[Token]Entry)
	for iter.Next() {
		label := iter.Selector().Unquoted()
		field := iter.Value()

		switch field.IncompleteKind() {
		case cue.StringKind:
			s, err := field.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			entries[Token(label)] = Literal(s)
		case cue.StructKind:
			op, err := parseCUEOperator(label, field)
			if err != nil {
				return nil, err
			}
			entries[Token(label)] = op
		default:
			return nil, &LoadError{
				Token:   label,
				Message: fmt.Sprintf("entry must be a string or a template/args struct, got %v", field.IncompleteKind()),
				Pos:     field.Pos(),
			}
		}
	}
	return entries, nil
}

func parseCUEOperator(label string, v cue.Value) (Operator, error) {
	templateVal := v.LookupPath(cue.ParsePath("template"))
	if !templateVal.Exists() {
		return Operator{}, &LoadError{Token: label, Message: "template is required", Pos: v.Pos()}
	}
	template, err := templateVal.String()
	if err != nil {
		return Operator{}, formatCUEError(err)
	}

	var args []string
	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		list, err := argsVal.List()
		if err != nil {
			return Operator{}, formatCUEError(err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return Operator{}, formatCUEError(err)
			}
			args = append(args, s)
		}
	}

	op, err := buildOperator(label, template, args)
	if err != nil {
		var le *LoadError
		if asLoadError(err, &le) {
			le.Pos = v.Pos()
		}
		return Operator{}, err
	}
	return op, nil
}

func buildOperator(name, template string, args []string) (Operator, error) {
	roles := make([]Role, len(args))
	for i, a := range args {
		roles[i] = Role(a)
	}
	op := Operator{Template: template, Args: roles}
	if err := op.Check(); err != nil {
		return Operator{}, &LoadError{Token: name, Message: err.Error()}
	}
	return op, nil
}

func asLoadError(err error, target **LoadError) bool {
	le, ok := err.(*LoadError)
	if ok {
		*target = le
	}
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Token:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
