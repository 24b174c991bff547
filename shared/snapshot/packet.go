package snapshot

import (
	"errors"
	"fmt"

	"github.com/automoto/ghostsync/shared/codec"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/tick"
)

// GhostDelta pairs a record with the baselines it is encoded against.
type GhostDelta struct {
	Record    Record
	Baselines []Baseline
}

// Packet is one server snapshot as produced for a single connection.
type Packet struct {
	ServerTick tick.Tick
	Despawns   []ghostid.ID
	Ghosts     []GhostDelta
}

// Discard describes a ghost dropped while decoding a packet.
type Discard struct {
	ID   ghostid.ID
	Tick tick.Tick
	Err  error
}

// Decoded is the receiving side's view of a packet.
type Decoded struct {
	ServerTick tick.Tick
	Despawns   []ghostid.ID
	Ghosts     []Record
	Discarded  []Discard
}

// Complete reports whether every ghost record in the packet was applied.
func (d *Decoded) Complete() bool { return len(d.Discarded) == 0 }

// EncodePacket serializes p. The model is the registry's shared model.
func EncodePacket(p *Packet, m *codec.CompressionModel) ([]byte, error) {
	w := codec.NewWriter(256)
	w.WriteUint32(uint32(p.ServerTick))
	w.WritePackedUint(uint32(len(p.Despawns)), m)
	for _, id := range p.Despawns {
		w.WritePackedUint(uint32(id), m)
	}
	w.WritePackedUint(uint32(len(p.Ghosts)), m)
	for _, g := range p.Ghosts {
		if err := EncodeGhost(w, g.Record, g.Baselines); err != nil {
			return nil, fmt.Errorf("encode ghost %s: %w", g.Record.ID, err)
		}
	}
	return w.Bytes(), nil
}

// DecodePacket parses a snapshot packet. Ghosts whose baseline is missing are
// reported in Discarded and the remaining records are still decoded. Errors
// that break stream alignment abort the packet.
func DecodePacket(data []byte, reg TypeRegistry, src BaselineSource) (*Decoded, error) {
	m := reg.Model()
	r := codec.NewReader(data)
	d := &Decoded{ServerTick: tick.Tick(r.ReadUint32())}

	n := r.ReadPackedUint(m)
	if r.Err() == nil && n > uint32(len(data))*8 {
		return nil, fmt.Errorf("%w: %d despawns", ErrMalformed, n)
	}
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		d.Despawns = append(d.Despawns, ghostid.ID(r.ReadPackedUint(m)))
	}
	count := r.ReadPackedUint(m)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if count > uint32(len(data))*8 {
		return nil, fmt.Errorf("%w: %d ghosts", ErrMalformed, count)
	}
	for i := uint32(0); i < count; i++ {
		rec, err := DecodeGhost(r, reg, src)
		switch {
		case err == nil:
			d.Ghosts = append(d.Ghosts, rec)
		case errors.Is(err, ErrMissingBaseline):
			d.Discarded = append(d.Discarded, Discard{ID: rec.ID, Tick: rec.Tick, Err: err})
		default:
			return nil, fmt.Errorf("ghost %d of %d: %w", i+1, count, err)
		}
	}
	return d, nil
}
