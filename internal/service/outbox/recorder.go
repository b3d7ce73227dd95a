package outbox

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

const (
	// AggregateCollection: тип агрегата для событий изменения коллекции.
	AggregateCollection = "collection"
	// EventStateChanged: тип события зафиксированного изменения.
	EventStateChanged = "StateChanged"
)

// StateChanged: тело события, публикуемого в gusto.state.events.
type StateChanged struct {
	EventType  string    `json:"event_type"`
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	Size       int       `json:"size"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Recorder складывает изменения коллекций в outbox. Ошибки только логируются:
// мутация уже зафиксирована и не должна ждать брокер.
type Recorder struct {
	repo   domain.OutboxRepository
	newID  func() string
	logger *log.Entry
}

// NewRecorder создаёт Recorder; logger может быть nil.
func NewRecorder(repo domain.OutboxRepository, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "outbox-recorder")
	}
	return &Recorder{repo: repo, newID: state.NewID, logger: logger}
}

// Observe реализует state.Observer.
func (r *Recorder) Observe(change state.Change) {
	// Загрузка из хранилища ничего не меняет, наружу её не публикуем.
	if change.Op == state.OpLoad {
		return
	}

	event := StateChanged{
		EventType:  EventStateChanged,
		Collection: change.Collection,
		Op:         string(change.Op),
		Size:       change.Size,
		OccurredAt: change.At.UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.WithError(err).Warn("failed to encode state change event")
		return
	}

	_, err = r.repo.Enqueue(domain.OutboxMessage{
		ID:            r.newID(),
		AggregateType: AggregateCollection,
		AggregateID:   change.Collection,
		EventType:     EventStateChanged,
		Payload:       payload,
		CreatedAt:     change.At.UTC(),
	})
	if err != nil {
		r.logger.WithError(err).WithField("collection", change.Collection).Warn("failed to enqueue state change event")
	}
}

var _ state.Observer = (*Recorder)(nil)
