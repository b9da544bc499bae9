package core

import (
	"errors"
	"reflect"
	"testing"
)

func tagBinding() *Binding {
	return &Binding{
		Group: "group",
		Verb:  "create",
		Params: []Param{
			{Name: "name", Short: "n", Required: true},
			{Name: "location", Short: "l"},
			{Name: "tags", Kind: KindList},
			{Name: "no-wait", Kind: KindBool},
		},
		Confirm: true,
	}
}

func TestParseListValues(t *testing.T) {
	args, err := tagBinding().Parse([]string{"-n", "rg1", "-l", "westus", "--tags", "a=b", "c"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args.String("name") != "rg1" || args.String("location") != "westus" {
		t.Fatalf("unexpected args: %#v", args)
	}
	if !reflect.DeepEqual(args.Strings("tags"), []string{"a=b", "c"}) {
		t.Fatalf("unexpected tags: %#v", args.Strings("tags"))
	}
	if args.Has("no-wait") {
		t.Fatalf("no-wait must not be set")
	}
	if args.String("output") != "json" {
		t.Fatalf("expected default output json, got %q", args.String("output"))
	}
}

func TestParseEmptyList(t *testing.T) {
	args, err := tagBinding().Parse([]string{"-n", "rg1", "--tags", "--no-wait"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !args.Has("tags") || len(args.Strings("tags")) != 0 {
		t.Fatalf("expected tags present and empty: %#v", args)
	}
	if !args.Bool("no-wait") {
		t.Fatalf("expected no-wait")
	}
}

func TestParseRepeatedList(t *testing.T) {
	args, err := tagBinding().Parse([]string{"-n", "rg1", "--tags", "a=b", "--tags=c=d"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(args.Strings("tags"), []string{"a=b", "c=d"}) {
		t.Fatalf("unexpected tags: %#v", args.Strings("tags"))
	}
}

func TestParseRequired(t *testing.T) {
	_, err := tagBinding().Parse([]string{"-l", "westus"})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestParseRejectsPositional(t *testing.T) {
	_, err := (&Binding{Group: "group", Verb: "show", Params: []Param{{Name: "name", Short: "n"}}}).Parse([]string{"-n", "a", "extra"})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestParseConfirmAddsYes(t *testing.T) {
	args, err := tagBinding().Parse([]string{"-n", "rg1", "-y"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !args.Bool("yes") {
		t.Fatalf("expected yes flag")
	}
}
