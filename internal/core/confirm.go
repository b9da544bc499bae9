package core

import "fmt"

// Confirmer решает, можно ли выполнить команду, требующую подтверждения.
type Confirmer interface {
	Confirm(b *Binding, args Args) error
}

// FlagConfirmer требует явный --yes для команд с Confirm.
type FlagConfirmer struct{}

// Confirm возвращает ошибку, если подтверждение не передано.
func (FlagConfirmer) Confirm(b *Binding, args Args) error {
	if !b.Confirm || args.Bool(YesParam.Name) {
		return nil
	}
	return fmt.Errorf("%s: pass --yes to proceed: %w", b.Key(), ErrConfirmationRequired)
}

// AssumeYes подтверждает любые команды.
type AssumeYes struct{}

func (AssumeYes) Confirm(*Binding, Args) error { return nil }
