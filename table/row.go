package table

import (
	"encoding/binary"
	"fmt"
)

const (
	// RowSize is the fixed serialized width of a row:
	// 4-byte id + 32-byte username + 255-byte email.
	RowSize = 291

	UsernameMaxLen = 32
	EmailMaxLen    = 255

	usernameOffset = 4
	emailOffset    = usernameOffset + UsernameMaxLen
)

// Row is the fixed-shape tuple stored at each leaf cell. The tree treats
// it as an opaque value; only the id participates in ordering.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

func (r Row) String() string {
	return fmt.Sprintf("[%d] %s (%s)", r.ID, r.Username, r.Email)
}

// SerializeRow writes the row into dst as a little-endian id followed by
// NUL-padded username and email fields. dst must be RowSize bytes.
func SerializeRow(r Row, dst []byte) error {
	if len(dst) != RowSize {
		return fmt.Errorf("serialize row: dst length %d, expected %d", len(dst), RowSize)
	}
	if len(r.Username) > UsernameMaxLen {
		return fmt.Errorf("serialize row: username %d bytes, max %d", len(r.Username), UsernameMaxLen)
	}
	if len(r.Email) > EmailMaxLen {
		return fmt.Errorf("serialize row: email %d bytes, max %d", len(r.Email), EmailMaxLen)
	}
	for i := range dst {
		dst[i] = 0
	}
	binary.LittleEndian.PutUint32(dst[0:4], r.ID)
	copy(dst[usernameOffset:usernameOffset+UsernameMaxLen], r.Username)
	copy(dst[emailOffset:emailOffset+EmailMaxLen], r.Email)
	return nil
}

// DeserializeRow is the inverse of SerializeRow, reading each string field
// up to its first NUL.
func DeserializeRow(src []byte) (Row, error) {
	if len(src) != RowSize {
		return Row{}, fmt.Errorf("deserialize row: src length %d, expected %d", len(src), RowSize)
	}
	return Row{
		ID:       binary.LittleEndian.Uint32(src[0:4]),
		Username: trimNUL(src[usernameOffset : usernameOffset+UsernameMaxLen]),
		Email:    trimNUL(src[emailOffset : emailOffset+EmailMaxLen]),
	}, nil
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
