package scenario

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Names выдает имена ресурсов: детерминированные при воспроизведении и
// случайные при живом прогоне. В режиме записи каждое живое имя
// сообщается в OnLive вместе с его воспроизводимым псевдонимом.
type Names struct {
	Mode   Mode
	OnLive func(live, moniker string)

	mu      sync.Mutex
	counter int
}

// Create возвращает имя с префиксом prefix длиной не более length.
func (n *Names) Create(prefix string, length int) string {
	n.mu.Lock()
	n.counter++
	moniker := fmt.Sprintf("%s%06d", prefix, n.counter)
	onLive := n.OnLive
	n.mu.Unlock()

	if !n.Mode.IsLive() {
		return moniker
	}
	name := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if length > len(prefix) && len(name) > length {
		name = name[:length]
	}
	if onLive != nil {
		onLive(name, moniker)
	}
	return name
}
