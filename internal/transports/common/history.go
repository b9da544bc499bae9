package common

import (
	"context"
	"encoding/json"

	"cloudctl/internal/core"
	"cloudctl/internal/storage"
)

// HistorySink записывает выполненные команды.
type HistorySink interface {
	Write(ctx context.Context, rec storage.CommandRecord) error
}

const redacted = "***"

// redactArgs скрывает значения параметров, помеченных Secret.
func redactArgs(b *core.Binding, args core.Args) []byte {
	secret := map[string]bool{}
	for _, p := range b.Params {
		if p.Secret {
			secret[p.Name] = true
		}
	}
	out := make(map[string][]string, len(args))
	for k, vals := range args {
		if secret[k] {
			masked := make([]string, len(vals))
			for i := range masked {
				masked[i] = redacted
			}
			out[k] = masked
			continue
		}
		out[k] = vals
	}
	payload, _ := json.Marshal(out)
	return payload
}
