package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloudctl/internal/core"
)

func result(t *testing.T, raw string) core.Result {
	t.Helper()
	res, err := core.NewResult(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("new result: %v", err)
	}
	return res
}

func TestQuery(t *testing.T) {
	res := result(t, `[{"name":"rg1","tags":{"a":"b"}},{"name":"rg2"}]`)
	got, err := Query(res, "0.name")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got.Output != "rg1" {
		t.Fatalf("unexpected output %#v", got.Output)
	}
	got, _ = Query(res, `#(name=="rg2").name`)
	if got.Output != "rg2" {
		t.Fatalf("unexpected output %#v", got.Output)
	}
	got, _ = Query(res, "5.name")
	if !got.Empty() {
		t.Fatalf("missing path must be empty, got %#v", got.Output)
	}
}

func TestWriteFormats(t *testing.T) {
	res := result(t, `[{"name":"rg1","location":"westus","tags":{"a":"b"}}]`)

	var buf bytes.Buffer
	if err := Write(&buf, res, FormatJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "rg1"`) {
		t.Fatalf("unexpected json: %s", buf.String())
	}

	buf.Reset()
	if err := Write(&buf, res, FormatYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "name: rg1") {
		t.Fatalf("unexpected yaml: %s", buf.String())
	}

	buf.Reset()
	if err := Write(&buf, res, FormatTSV); err != nil {
		t.Fatalf("tsv: %v", err)
	}
	if buf.String() != "rg1\twestus\n" {
		t.Fatalf("unexpected tsv: %q", buf.String())
	}

	buf.Reset()
	if err := Write(&buf, res, FormatNone); err != nil || buf.Len() != 0 {
		t.Fatalf("none must print nothing: %q %v", buf.String(), err)
	}

	if err := Write(&buf, res, "xml"); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, core.Result{}, FormatJSON); err != nil || buf.Len() != 0 {
		t.Fatalf("empty result must print nothing: %q %v", buf.String(), err)
	}
}
