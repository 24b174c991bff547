package command

import (
	"fmt"

	"github.com/automoto/ghostsync/shared/codec"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/tick"
)

// RedundantSamples is the number of samples carried by one command packet.
const RedundantSamples = 4

const sampleCountBits = 3

// Serializer writes and reads one sample as a delta against base. The newest
// sample of a packet is written against the zero value, older ones against
// the newest.
type Serializer[T any] interface {
	Write(w *codec.Writer, v, base T, m *codec.CompressionModel)
	Read(r *codec.Reader, base T, m *codec.CompressionModel) T
}

// Packet is the client to server command message. It also carries the
// client's snapshot acknowledgement window.
type Packet[T any] struct {
	AckTick tick.Tick
	AckMask uint64
	Ghost   ghostid.ID
	// Samples are ordered newest first.
	Samples []Sample[T]
}

// EncodePacket serializes p. Samples beyond RedundantSamples are dropped.
func EncodePacket[T any](p *Packet[T], s Serializer[T], m *codec.CompressionModel) []byte {
	samples := p.Samples
	if len(samples) > RedundantSamples {
		samples = samples[:RedundantSamples]
	}
	w := codec.NewWriter(64)
	w.WriteUint32(uint32(p.AckTick))
	w.WriteUint64(p.AckMask)
	w.WriteUint32(uint32(p.Ghost))
	w.WriteRawBits(uint32(len(samples)), sampleCountBits)
	if len(samples) == 0 {
		return w.Bytes()
	}
	var zero T
	newest := samples[0]
	w.WriteUint32(uint32(newest.Tick))
	s.Write(w, newest.Value, zero, m)
	for _, older := range samples[1:] {
		w.WritePackedUint(uint32(tick.Diff(newest.Tick, older.Tick)), m)
		s.Write(w, older.Value, newest.Value, m)
	}
	return w.Bytes()
}

// DecodePacket parses a command packet.
func DecodePacket[T any](data []byte, s Serializer[T], m *codec.CompressionModel) (*Packet[T], error) {
	r := codec.NewReader(data)
	p := &Packet[T]{
		AckTick: tick.Tick(r.ReadUint32()),
		AckMask: r.ReadUint64(),
		Ghost:   ghostid.ID(r.ReadUint32()),
	}
	n := int(r.ReadRawBits(sampleCountBits))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("command header: %w", err)
	}
	if n > RedundantSamples {
		return nil, fmt.Errorf("%w: %d command samples", codec.ErrOverflow, n)
	}
	if n == 0 {
		return p, nil
	}
	var zero T
	newest := Sample[T]{Tick: tick.Tick(r.ReadUint32())}
	newest.Value = s.Read(r, zero, m)
	p.Samples = append(p.Samples, newest)
	for i := 1; i < n; i++ {
		t := newest.Tick.Add(-int32(r.ReadPackedUint(m)))
		p.Samples = append(p.Samples, Sample[T]{Tick: t, Value: s.Read(r, newest.Value, m)})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("command samples: %w", err)
	}
	return p, nil
}
