package semtok

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// RecordWidth is the number of integers that make up one encoded semantic token.
const RecordWidth = 5

// Record is one delta-encoded semantic token as it appears on the wire:
//
//	[deltaLine, deltaStartChar, length, tokenType, tokenModifiers]
//
// Two records with the same field values are interchangeable, regardless of where
// they sit in a stream.
type Record struct {
	DeltaLine      uint32
	DeltaStartChar uint32
	Length         uint32
	TokenType      uint32
	TokenModifiers uint32
}

// Stream is an ordered sequence of records.
type Stream []Record

// Values returns the record in wire order.
func (r Record) Values() [RecordWidth]uint32 {
	return [RecordWidth]uint32{r.DeltaLine, r.DeltaStartChar, r.Length, r.TokenType, r.TokenModifiers}
}

func (r Record) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d,%d]", r.DeltaLine, r.DeltaStartChar, r.Length, r.TokenType, r.TokenModifiers)
}

// MalformedStreamError reports a flat token array whose length is not a multiple of RecordWidth.
// Tokenizers are never expected to produce one, so it signals a bug upstream.
type MalformedStreamError struct {
	Length int
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("malformed semantic token stream: length %d is not a multiple of %d", e.Length, RecordWidth)
}

// ToRecords groups a flat token array into records, preserving order.
func ToRecords(flat []uint32) (Stream, error) {
	if len(flat)%RecordWidth != 0 {
		return nil, errors.WithStack(&MalformedStreamError{Length: len(flat)})
	}

	records := make(Stream, 0, len(flat)/RecordWidth)
	for i := 0; i < len(flat); i += RecordWidth {
		records = append(records, Record{
			DeltaLine:      flat[i],
			DeltaStartChar: flat[i+1],
			Length:         flat[i+2],
			TokenType:      flat[i+3],
			TokenModifiers: flat[i+4],
		})
	}

	return records, nil
}

// ToFlat is the inverse of ToRecords.
func ToFlat(records Stream) []uint32 {
	flat := make([]uint32, 0, len(records)*RecordWidth)
	for _, r := range records {
		flat = append(flat, r.DeltaLine, r.DeltaStartChar, r.Length, r.TokenType, r.TokenModifiers)
	}
	return flat
}

// AppendFlat appends the wire form of r to dst.
func (r Record) AppendFlat(dst []uint32) []uint32 {
	return append(dst, r.DeltaLine, r.DeltaStartChar, r.Length, r.TokenType, r.TokenModifiers)
}
