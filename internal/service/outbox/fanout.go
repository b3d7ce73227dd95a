package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// NamedPublisher: паблишер с именем брокера для сообщений об ошибках.
type NamedPublisher struct {
	Name      string
	Publisher domain.OutboxPublisher
}

// Fanout отправляет каждое событие во все брокеры. Событие считается опубликованным,
// только если его приняли все; worker повторит попытку целиком.
type Fanout struct {
	targets []NamedPublisher
}

// NewFanout собирает паблишеры, пропуская nil.
func NewFanout(targets ...NamedPublisher) *Fanout {
	f := &Fanout{}
	for _, target := range targets {
		if target.Publisher != nil {
			f.targets = append(f.targets, target)
		}
	}
	return f
}

// Len возвращает число подключённых брокеров.
func (f *Fanout) Len() int {
	return len(f.targets)
}

// Publish реализует domain.OutboxPublisher.
func (f *Fanout) Publish(ctx context.Context, event domain.OutboxMessage) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.Publisher.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target.Name, err))
		}
	}
	return errors.Join(errs...)
}

var _ domain.OutboxPublisher = (*Fanout)(nil)
