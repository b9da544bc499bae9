package scenario

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// ModeEnv выбирает режим прогона.
const ModeEnv = "CLOUDCTL_TEST_MODE"

// Mode определяет, откуда берутся ответы API.
type Mode string

const (
	// ModeReplay отвечает из кассеты без сети.
	ModeReplay Mode = "replay"
	// ModeLive обращается к реальному API.
	ModeLive Mode = "live"
	// ModeRecord обращается к API и записывает кассету.
	ModeRecord Mode = "record"
)

var (
	modeOnce    sync.Once
	currentMode Mode
	modeErr     error
)

// ParseMode разбирает имя режима; пустая строка означает replay.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReplay:
		return ModeReplay, nil
	case ModeLive:
		return ModeLive, nil
	case ModeRecord:
		return ModeRecord, nil
	default:
		return "", fmt.Errorf("unknown %s %q: expected replay, live or record", ModeEnv, s)
	}
}

// CurrentMode читает режим из окружения один раз за процесс.
func CurrentMode() (Mode, error) {
	modeOnce.Do(func() {
		currentMode, modeErr = ParseMode(os.Getenv(ModeEnv))
	})
	return currentMode, modeErr
}

// IsLive сообщает, что запросы уходят в сеть.
func (m Mode) IsLive() bool {
	return m == ModeLive || m == ModeRecord
}
