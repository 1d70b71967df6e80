package strata

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"path"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/justapithecus/strata/internal/z85"
)

// Deletion vector storage types.
const (
	// DVStorageUUID stores the vector in a file named after a Z85-encoded
	// UUID, relative to the table root.
	DVStorageUUID = "u"

	// DVStoragePath stores the vector at an absolute path.
	DVStoragePath = "p"

	// DVStorageInline embeds the Z85-encoded vector in the descriptor itself.
	DVStorageInline = "i"
)

const (
	// dvMagic introduces a serialized bitmap payload (little-endian).
	dvMagic uint32 = 1681511377

	// dvFormatVersion is the only deletion vector file format strata reads.
	// The version byte is the first byte of the vector file.
	dvFormatVersion = 1

	// z85UUIDLen is the Z85 length of an encoded 16-byte UUID.
	z85UUIDLen = 20
)

// -----------------------------------------------------------------------------
// Descriptor
// -----------------------------------------------------------------------------

// UniqueID distinguishes deletion vectors during log replay. Descriptors for
// the same stored vector produce the same ID; a nil descriptor yields "".
func (d *DeletionVectorDescriptor) UniqueID() string {
	if d == nil {
		return ""
	}
	if d.Offset != nil {
		return fmt.Sprintf("%s%s@%d", d.StorageType, d.PathOrInlineDV, *d.Offset)
	}
	return d.StorageType + d.PathOrInlineDV
}

// IsInline reports whether the vector is embedded in the descriptor.
func (d *DeletionVectorDescriptor) IsInline() bool {
	return d.StorageType == DVStorageInline
}

// AbsolutePath returns the location of the vector file. For UUID storage the
// path is derived from the Z85-encoded UUID (preceded by an optional random
// prefix) and joined under tableRoot; for path storage it is returned as-is.
// Inline descriptors have no path.
func (d *DeletionVectorDescriptor) AbsolutePath(tableRoot string) (string, error) {
	switch d.StorageType {
	case DVStoragePath:
		return d.PathOrInlineDV, nil
	case DVStorageUUID:
		encoded := d.PathOrInlineDV
		if len(encoded) < z85UUIDLen {
			return "", fmt.Errorf("%w: uuid field %q too short", ErrDeletionVectorDecode, encoded)
		}
		prefix := encoded[:len(encoded)-z85UUIDLen]
		raw, err := z85.Decode(encoded[len(encoded)-z85UUIDLen:])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDeletionVectorDecode, err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDeletionVectorDecode, err)
		}
		name := fmt.Sprintf("deletion_vector_%s.bin", id)
		return path.Join(tableRoot, prefix, name), nil
	case DVStorageInline:
		return "", fmt.Errorf("%w: inline deletion vector has no path", ErrDeletionVectorDecode)
	default:
		return "", fmt.Errorf("%w: unknown storage type %q", ErrDeletionVectorDecode, d.StorageType)
	}
}

// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// ResolveSelectionVector translates a file's deletion vector into a dense
// selection vector of length fileRowCount: true keeps the row, false drops it.
//
// A nil descriptor is the common case and costs one allocation and no I/O.
// The resolver is stateless and safe to call concurrently; it caches nothing
// across calls.
//
// Fails with ErrDeletionVectorSizeMismatch when a deleted ordinal is at or
// beyond fileRowCount: that means table metadata and the data file disagree,
// and it is surfaced rather than clamped.
func ResolveSelectionVector(ctx context.Context, engine Engine, state *GlobalScanState, d *DeletionVectorDescriptor, fileRowCount int64) (SelectionVector, error) {
	if fileRowCount < 0 {
		return nil, fmt.Errorf("strata: negative file row count %d", fileRowCount)
	}

	selection := NewAllSelected(fileRowCount)
	if d == nil {
		return selection, nil
	}

	deleted, err := ReadDeletionVector(ctx, engine, state.TableRoot, d)
	if err != nil {
		return nil, err
	}

	for _, ord := range deleted {
		if ord >= uint64(fileRowCount) {
			return nil, fmt.Errorf("%w: deleted ordinal %d, file has %d rows",
				ErrDeletionVectorSizeMismatch, ord, fileRowCount)
		}
		selection[ord] = false
	}
	return selection, nil
}

// ReadDeletionVector loads and decodes a deletion vector, returning the
// deleted row ordinals in ascending order.
func ReadDeletionVector(ctx context.Context, engine Engine, tableRoot string, d *DeletionVectorDescriptor) ([]uint64, error) {
	payload, err := loadDVPayload(ctx, engine, tableRoot, d)
	if err != nil {
		return nil, err
	}

	deleted, err := decodeBitmapArray(payload)
	if err != nil {
		return nil, err
	}

	if int64(len(deleted)) != d.Cardinality {
		return nil, fmt.Errorf("%w: decoded %d ordinals, descriptor cardinality %d",
			ErrDeletionVectorDecode, len(deleted), d.Cardinality)
	}
	return deleted, nil
}

// loadDVPayload produces the serialized bitmap payload (magic included)
// referenced by the descriptor.
func loadDVPayload(ctx context.Context, engine Engine, tableRoot string, d *DeletionVectorDescriptor) ([]byte, error) {
	if d.IsInline() {
		data, err := z85.Decode(d.PathOrInlineDV)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeletionVectorDecode, err)
		}
		// Z85 works in 4-byte blocks, so the encoded form may carry up to
		// three padding bytes beyond the true size.
		if int32(len(data)) < d.SizeInBytes {
			return nil, fmt.Errorf("%w: inline payload is %d bytes, descriptor says %d",
				ErrDeletionVectorDecode, len(data), d.SizeInBytes)
		}
		return data[:d.SizeInBytes], nil
	}

	vectorPath, err := d.AbsolutePath(tableRoot)
	if err != nil {
		return nil, err
	}

	if d.Offset != nil {
		// The offset addresses the 4-byte big-endian data-size field that
		// precedes the payload.
		rng := &ByteRange{Offset: int64(*d.Offset), Length: int64(d.SizeInBytes) + 4}
		buf, err := engine.ReadBytes(ctx, vectorPath, rng)
		if err != nil {
			return nil, fmt.Errorf("%w: read deletion vector %s: %w", ErrIoError, vectorPath, err)
		}
		if len(buf) < 4 {
			return nil, fmt.Errorf("%w: truncated deletion vector frame", ErrDeletionVectorDecode)
		}
		dataSize := int32(binary.BigEndian.Uint32(buf[:4]))
		if dataSize != d.SizeInBytes {
			return nil, fmt.Errorf("%w: frame size %d, descriptor says %d",
				ErrDeletionVectorDecode, dataSize, d.SizeInBytes)
		}
		if int32(len(buf)-4) < dataSize {
			return nil, fmt.Errorf("%w: truncated deletion vector payload", ErrDeletionVectorDecode)
		}
		return buf[4 : 4+dataSize], nil
	}

	// Without an offset the file holds a single vector directly after the
	// format version byte.
	buf, err := engine.ReadBytes(ctx, vectorPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read deletion vector %s: %w", ErrIoError, vectorPath, err)
	}
	if len(buf) < 5 {
		return nil, fmt.Errorf("%w: deletion vector file too short", ErrDeletionVectorDecode)
	}
	if buf[0] != dvFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d",
			ErrDeletionVectorDecode, buf[0], dvFormatVersion)
	}
	dataSize := int32(binary.BigEndian.Uint32(buf[1:5]))
	if dataSize != d.SizeInBytes {
		return nil, fmt.Errorf("%w: frame size %d, descriptor says %d",
			ErrDeletionVectorDecode, dataSize, d.SizeInBytes)
	}
	if int32(len(buf)-5) < dataSize {
		return nil, fmt.Errorf("%w: truncated deletion vector payload", ErrDeletionVectorDecode)
	}
	return buf[5 : 5+dataSize], nil
}

// decodeBitmapArray decodes a 64-bit roaring bitmap array: the little-endian
// magic, a little-endian count of 32-bit bitmaps, then each bitmap in
// standard roaring serialization, keyed by its index as the high 32 bits.
func decodeBitmapArray(payload []byte) ([]uint64, error) {
	if len(payload) < 12 {
		return nil, fmt.Errorf("%w: payload too short for bitmap header", ErrDeletionVectorDecode)
	}
	if magic := binary.LittleEndian.Uint32(payload[:4]); magic != dvMagic {
		return nil, fmt.Errorf("%w: bad magic %d", ErrDeletionVectorDecode, magic)
	}

	count := binary.LittleEndian.Uint64(payload[4:12])
	r := bytes.NewReader(payload[12:])

	var deleted []uint64
	for key := uint64(0); key < count; key++ {
		bm := roaring.New()
		if _, err := bm.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("%w: bitmap %d: %v", ErrDeletionVectorDecode, key, err)
		}
		high := key << 32
		for _, low := range bm.ToArray() {
			deleted = append(deleted, high|uint64(low))
		}
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after bitmap array", ErrDeletionVectorDecode, r.Len())
	}
	return deleted, nil
}
