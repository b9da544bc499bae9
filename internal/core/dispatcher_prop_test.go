package core

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func Test_ResolveReturnsLastRegistration(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Каждая пара (group, verb) разрешается в последнюю зарегистрированную привязку.
	properties.Property("resolve returns the binding registered last", prop.ForAll(
		func(groupIdx []int, verbIdx []int) bool {
			groups := pick(groupIdx, "group", "cdn endpoint", "resource", "tag")
			verbs := pick(verbIdx, "show", "list", "create", "delete")
			r := NewRegistry()
			last := make(map[string]int)
			n := len(groups)
			if len(verbs) < n {
				n = len(verbs)
			}
			for i := 0; i < n; i++ {
				idx := i
				b := Binding{
					Group:     groups[i],
					Verb:      verbs[i],
					Operation: func(ctx context.Context, args Args) (any, error) { return idx, nil },
				}
				if err := r.Register(b); err != nil {
					return false
				}
				last[b.Key()] = idx
			}
			if len(r.Bindings()) != len(last) {
				return false
			}
			for key, want := range last {
				b, err := r.Resolve(r.bindings[key].Group, r.bindings[key].Verb)
				if err != nil {
					return false
				}
				got, _ := b.Operation(context.Background(), nil)
				if got != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func pick(idx []int, names ...string) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = names[n%len(names)]
	}
	return out
}
