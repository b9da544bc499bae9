package scenario

import (
	"context"
	"fmt"
	"sync"
)

// DefaultLocation используется для создаваемых групп ресурсов.
const DefaultLocation = "westus"

// ResourceGroupPreparer создает группу ресурсов перед телом сценария и
// удаляет ее после, ровно один раз.
type ResourceGroupPreparer struct {
	Prefix   string
	Location string
	// Key задает имя подстановки с именем группы, по умолчанию "rg".
	Key   string
	Names *Names
}

// Use создает группу, выполняет body и освобождает группу при успехе,
// ошибке и панике. Ошибка удаления только пишется в лог и не заменяет
// ошибку body.
func (p *ResourceGroupPreparer) Use(ctx context.Context, r *Runner, body func(name string) error) (err error) {
	key := p.Key
	if key == "" {
		key = "rg"
	}
	location := p.Location
	if location == "" {
		location = DefaultLocation
	}
	prefix := p.Prefix
	if prefix == "" {
		prefix = "clitest.rg"
	}
	names := p.Names
	if names == nil {
		names = &Names{Mode: ModeReplay}
	}

	name := names.Create(prefix, 75)
	r.Set(key, name)
	r.Set("loc", location)

	r.beginSetup()
	if _, err := r.exec(ctx, fmt.Sprintf("group create -n %s -l %s", name, location)); err != nil {
		r.Fail(err)
		return fmt.Errorf("prepare resource group %s: %w", name, err)
	}
	r.setState(StateExecuting)

	var once sync.Once
	release := func() {
		once.Do(func() { p.release(ctx, r, name) })
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.Fail(fmt.Errorf("panic: %v", rec))
			release()
			panic(rec)
		}
		release()
	}()

	if err = body(name); err != nil {
		r.Fail(err)
	}
	return err
}

func (p *ResourceGroupPreparer) release(ctx context.Context, r *Runner, name string) {
	r.beginTeardown()
	if _, err := r.exec(context.WithoutCancel(ctx), fmt.Sprintf("group delete -n %s --yes --no-wait", name)); err != nil {
		r.Logger.Warn("resource group teardown failed", "name", name, "err", err)
	}
	r.setState(StateExecuting)
}
