package prespawn

import (
	"encoding/binary"
	"fmt"
)

// RecordSize is the wire size of one Record.
const RecordSize = 24

// Record announces the ID range of one subscene to clients.
type Record struct {
	SubSceneHash  uint64
	BaselineHash  uint64
	FirstGhostID  int32
	PrespawnCount int32
}

func (r Record) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint64(b, r.SubSceneHash)
	b = binary.LittleEndian.AppendUint64(b, r.BaselineHash)
	b = binary.LittleEndian.AppendUint32(b, uint32(r.FirstGhostID))
	return binary.LittleEndian.AppendUint32(b, uint32(r.PrespawnCount))
}

func (r Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, RecordSize)), nil
}

func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize {
		return fmt.Errorf("prespawn: record is %d bytes, want %d", len(b), RecordSize)
	}
	r.SubSceneHash = binary.LittleEndian.Uint64(b[0:])
	r.BaselineHash = binary.LittleEndian.Uint64(b[8:])
	r.FirstGhostID = int32(binary.LittleEndian.Uint32(b[16:]))
	r.PrespawnCount = int32(binary.LittleEndian.Uint32(b[20:]))
	return nil
}

// EncodeRecords concatenates records.
func EncodeRecords(records []Record) []byte {
	out := make([]byte, 0, len(records)*RecordSize)
	for _, r := range records {
		out = r.AppendBinary(out)
	}
	return out
}

func DecodeRecords(b []byte) ([]Record, error) {
	if len(b)%RecordSize != 0 {
		return nil, fmt.Errorf("prespawn: %d bytes is not a whole number of records", len(b))
	}
	out := make([]Record, len(b)/RecordSize)
	for i := range out {
		if err := out[i].UnmarshalBinary(b[i*RecordSize : (i+1)*RecordSize]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
