// Package passer carries structural updates out of the simulation: the core
// calls Send and never touches a socket.
package passer

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/world"
)

var (
	// ErrClosed is returned when sending through a closed hub.
	ErrClosed = errors.New("passer closed")
	// ErrUnknownKind is returned when decoding an envelope of a kind this
	// build does not know.
	ErrUnknownKind = errors.New("unknown message kind")
)

type Kind uint8

const (
	KindSetHealth Kind = iota + 1
	KindSetTile
	KindRemoveEntity
	KindSyncTransform
	KindFall
)

func (k Kind) String() string {
	switch k {
	case KindSetHealth:
		return "set_health"
	case KindSetTile:
		return "set_tile"
	case KindRemoveEntity:
		return "remove_entity"
	case KindSyncTransform:
		return "sync_transform"
	case KindFall:
		return "fall"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is one structural update.
type Message interface {
	Kind() Kind
}

type SetHealth struct {
	Entity engine.Entity     `msgpack:"e"`
	Health components.Health `msgpack:"h"`
}

func (SetHealth) Kind() Kind { return KindSetHealth }

type SetTile struct {
	Pos  world.TilePos `msgpack:"p"`
	Tile world.Tile    `msgpack:"t"`
}

func (SetTile) Kind() Kind { return KindSetTile }

type RemoveEntity struct {
	Entity engine.Entity `msgpack:"e"`
}

func (RemoveEntity) Kind() Kind { return KindRemoveEntity }

type SyncTransform struct {
	Entity    engine.Entity    `msgpack:"e"`
	Transform engine.Transform `msgpack:"t"`
}

func (SyncTransform) Kind() Kind { return KindSyncTransform }

type Fall struct {
	Entity    engine.Entity `msgpack:"e"`
	Magnitude float32       `msgpack:"m"`
}

func (Fall) Kind() Kind { return KindFall }

// Envelope is a message tagged with its kind so mixed batches survive the
// round trip.
type Envelope struct {
	Kind Kind               `msgpack:"k"`
	Data msgpack.RawMessage `msgpack:"d"`
}

func Wrap(m Message) (Envelope, error) {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return Envelope{Kind: m.Kind(), Data: data}, nil
}

// Message decodes the payload back into its concrete type.
func (e Envelope) Message() (Message, error) {
	switch e.Kind {
	case KindSetHealth:
		return decodeAs[SetHealth](e)
	case KindSetTile:
		return decodeAs[SetTile](e)
	case KindRemoveEntity:
		return decodeAs[RemoveEntity](e)
	case KindSyncTransform:
		return decodeAs[SyncTransform](e)
	case KindFall:
		return decodeAs[Fall](e)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
	}
}

func decodeAs[T Message](e Envelope) (Message, error) {
	var m T
	if err := msgpack.Unmarshal(e.Data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Kind, err)
	}
	return m, nil
}

// Frame is one flushed batch.
type Frame struct {
	Seq      uint64     `msgpack:"s"`
	Messages []Envelope `msgpack:"m"`
}

// Decoded decodes every envelope of the frame.
func (f Frame) Decoded() ([]Message, error) {
	out := make([]Message, 0, len(f.Messages))
	for _, e := range f.Messages {
		m, err := e.Message()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
