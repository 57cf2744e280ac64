package table

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestSerializeRowRoundTrip(t *testing.T) {
	cases := []Row{
		{ID: 0, Username: "bbuford", Email: "bbuford@example.com"},
		{ID: 0, Username: "", Email: ""},
		{ID: 0xdeadbeef, Username: strings.Repeat("a", UsernameMaxLen), Email: strings.Repeat("b", EmailMaxLen)},
	}
	for _, want := range cases {
		buf := make([]byte, RowSize)
		if err := SerializeRow(want, buf); err != nil {
			t.Fatalf("SerializeRow(%v): %v", want, err)
		}
		got, err := DeserializeRow(buf)
		if err != nil {
			t.Fatalf("DeserializeRow: %v", err)
		}
		if got != want {
			t.Errorf("round trip = %+v; want %+v", got, want)
		}
	}
}

func TestSerializeRowLayout(t *testing.T) {
	row := Row{ID: 7, Username: "alice", Email: "alice@example.com"}
	buf := make([]byte, RowSize)
	if err := SerializeRow(row, buf); err != nil {
		t.Fatal(err)
	}

	if got := binary.LittleEndian.Uint32(buf[0:4]); got != 7 {
		t.Errorf("id bytes = %d; want 7", got)
	}
	if !bytes.Equal(buf[4:9], []byte("alice")) {
		t.Errorf("username bytes = %q", buf[4:9])
	}
	if buf[9] != 0 || buf[35] != 0 {
		t.Errorf("username field is not NUL padded")
	}
	if !bytes.Equal(buf[36:53], []byte("alice@example.com")) {
		t.Errorf("email bytes = %q", buf[36:53])
	}
	if buf[RowSize-1] != 0 {
		t.Errorf("email field is not NUL padded")
	}
}

func TestSerializeRowRejectsOversizedFields(t *testing.T) {
	buf := make([]byte, RowSize)
	long := Row{ID: 1, Username: strings.Repeat("u", UsernameMaxLen+1), Email: "a@b"}
	if err := SerializeRow(long, buf); err == nil {
		t.Errorf("oversized username accepted")
	}
	long = Row{ID: 1, Username: "u", Email: strings.Repeat("e", EmailMaxLen+1)}
	if err := SerializeRow(long, buf); err == nil {
		t.Errorf("oversized email accepted")
	}
}

func TestSerializeRowBadBufferLength(t *testing.T) {
	if err := SerializeRow(Row{}, make([]byte, RowSize-1)); err == nil {
		t.Errorf("short destination accepted")
	}
	if _, err := DeserializeRow(make([]byte, RowSize+1)); err == nil {
		t.Errorf("long source accepted")
	}
}
