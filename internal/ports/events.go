package ports

// EventBus diffuse les transitions des feeds, recherches et sessions de lecture.
// Un abonné lent perd des événements; Publish ne bloque jamais.
type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}
