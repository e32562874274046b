package message

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout (proto3):
//
//	message TileRecord  { sint32 x = 1; sint32 y = 2; bytes data = 3; int64 built_at_unix_nano = 4; }
//	message TileArchive { uint32 version = 1; repeated TileRecord tiles = 2; }
//
// An archive file is ArchiveMagic followed by one TileArchive message.

var ArchiveMagic = []byte("NTAR")

const ArchiveVersion = 1

var ErrBadArchive = errors.New("message: not a tile archive")

type TileRecord struct {
	X               int32
	Y               int32
	Data            []byte
	BuiltAtUnixNano int64
}

func (r *TileRecord) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(r.X)))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(r.Y)))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Data)
	if r.BuiltAtUnixNano != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.BuiltAtUnixNano))
	}
	return b
}

func (r *TileRecord) Unmarshal(b []byte) error {
	*r = TileRecord{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			r.X = int32(protowire.DecodeZigZag(v))
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			r.Y = int32(protowire.DecodeZigZag(v))
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			r.Data = append([]byte(nil), v...)
			b = b[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			r.BuiltAtUnixNano = int64(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func EncodeArchive(records []*TileRecord) []byte {
	b := append([]byte(nil), ArchiveMagic...)
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, ArchiveVersion)
	for _, r := range records {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Marshal())
	}
	return b
}

func DecodeArchive(data []byte) ([]*TileRecord, error) {
	if !bytes.HasPrefix(data, ArchiveMagic) {
		return nil, ErrBadArchive
	}
	b := data[len(ArchiveMagic):]
	var records []*TileRecord
	version := uint64(0)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			version = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			rec := new(TileRecord)
			if err := rec.Unmarshal(v); err != nil {
				return nil, fmt.Errorf("tile record %d: %w", len(records), err)
			}
			records = append(records, rec)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if version != ArchiveVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadArchive, version)
	}
	return records, nil
}
