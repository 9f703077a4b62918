package sound

import (
	"io"
	"sync"

	"localchat/errors"
)

// Bell rings the terminal bell, the closest thing a terminal has to a chime.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) Notify() error {
	if b == nil || b.out == nil {
		return errors.ErrNotificationUnavailable
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.out, "\a")
	return err
}
