package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// ParamKind задает способ разбора флага.
type ParamKind int

const (
	// KindString принимает одно значение.
	KindString ParamKind = iota
	// KindBool задает флаг-переключатель.
	KindBool
	// KindList принимает все следующие слова до очередного флага и может повторяться.
	KindList
)

// Param описывает флаг команды.
type Param struct {
	Name     string
	Short    string
	Kind     ParamKind
	Required bool
	Default  string
	Help     string
	// Secret скрывает значение в истории команд.
	Secret bool
}

// Глобальные флаги, доступные у каждой команды.
var (
	QueryParam   = Param{Name: "query", Help: "gjson path applied to the command output"}
	OutputParam  = Param{Name: "output", Short: "o", Default: "json", Help: "output format: json, yaml, tsv, none"}
	VerboseParam = Param{Name: "verbose", Kind: KindBool, Help: "increase logging verbosity"}
	DebugParam   = Param{Name: "debug", Kind: KindBool, Help: "show all debug logs"}
	YesParam     = Param{Name: "yes", Short: "y", Kind: KindBool, Help: "do not prompt for confirmation"}
)

// GlobalParams возвращает флаги, общие для всех команд.
func GlobalParams() []Param {
	return []Param{QueryParam, OutputParam, VerboseParam, DebugParam}
}

// Args хранит значения флагов; наличие ключа означает, что флаг задан.
type Args map[string][]string

// String возвращает последнее значение флага.
func (a Args) String(name string) string {
	vals := a[name]
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

// Strings возвращает все значения флага.
func (a Args) Strings(name string) []string {
	return a[name]
}

// Bool возвращает true для заданного булевого флага.
func (a Args) Bool(name string) bool {
	return a.String(name) == "true"
}

// Has сообщает, был ли флаг указан.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Set задает значения флага.
func (a Args) Set(name string, values ...string) {
	a[name] = values
}

// FlagSet строит pflag-набор для привязки, включая глобальные флаги.
func (b *Binding) FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(b.Key(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, p := range b.allParams() {
		switch p.Kind {
		case KindBool:
			fs.BoolP(p.Name, p.Short, false, p.Help)
		case KindList:
			fs.StringArrayP(p.Name, p.Short, nil, p.Help)
		default:
			fs.StringP(p.Name, p.Short, p.Default, p.Help)
		}
	}
	return fs
}

func (b *Binding) allParams() []Param {
	params := make([]Param, 0, len(b.Params)+5)
	params = append(params, b.Params...)
	params = append(params, GlobalParams()...)
	if b.Confirm && !b.hasParam(YesParam.Name) {
		params = append(params, YesParam)
	}
	return params
}

func (b *Binding) hasParam(name string) bool {
	for _, p := range b.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (b *Binding) param(name string) (Param, bool) {
	for _, p := range b.allParams() {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (b *Binding) paramByFlag(token string) (Param, bool) {
	name := strings.SplitN(token, "=", 2)[0]
	switch {
	case strings.HasPrefix(name, "--"):
		return b.param(strings.TrimPrefix(name, "--"))
	case strings.HasPrefix(name, "-") && len(name) == 2:
		for _, p := range b.allParams() {
			if p.Short == name[1:] {
				return p, true
			}
		}
	}
	return Param{}, false
}

// Parse разбирает флаги команды в Args.
func (b *Binding) Parse(tokens []string) (Args, error) {
	fs := b.FlagSet()
	if err := fs.Parse(expandLists(b, tokens)); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", b.Key(), err, ErrInvalidArguments)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%s: unrecognized arguments: %s: %w", b.Key(), strings.Join(fs.Args(), " "), ErrInvalidArguments)
	}

	args := make(Args)
	for _, p := range b.allParams() {
		flag := fs.Lookup(p.Name)
		if flag == nil {
			continue
		}
		if !flag.Changed {
			if p.Default != "" && p.Kind != KindBool {
				args.Set(p.Name, p.Default)
			}
			continue
		}
		switch p.Kind {
		case KindList:
			vals, _ := fs.GetStringArray(p.Name)
			kept := make([]string, 0, len(vals))
			for _, v := range vals {
				if v != "" {
					kept = append(kept, v)
				}
			}
			args.Set(p.Name, kept...)
		case KindBool:
			v, _ := fs.GetBool(p.Name)
			if v {
				args.Set(p.Name, "true")
			} else {
				args.Set(p.Name, "false")
			}
		default:
			v, _ := fs.GetString(p.Name)
			args.Set(p.Name, v)
		}
	}

	for _, p := range b.Params {
		if p.Required && !args.Has(p.Name) {
			return nil, fmt.Errorf("%s: the following arguments are required: --%s: %w", b.Key(), p.Name, ErrInvalidArguments)
		}
	}
	return args, nil
}

// expandLists переписывает "--tags a=b c" в "--tags a=b --tags c",
// а пустой "--tags" в "--tags=".
func expandLists(b *Binding, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		p, ok := b.paramByFlag(tok)
		if !ok || p.Kind != KindList || strings.Contains(tok, "=") {
			out = append(out, tok)
			continue
		}
		values := 0
		for i+1 < len(tokens) && !isFlagToken(tokens[i+1]) {
			i++
			out = append(out, "--"+p.Name, tokens[i])
			values++
		}
		if values == 0 {
			out = append(out, "--"+p.Name+"=")
		}
	}
	return out
}

func isFlagToken(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	// отрицательные числа остаются значениями
	return !(tok[1] >= '0' && tok[1] <= '9')
}
