package bytecursor

import (
	"bytes"
	"testing"
)

func TestLengthPrefixed8RoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteLengthPrefixed8([]byte("【KoiKatuChara】"))
	w.WriteLengthPrefixed8([]byte(""))

	r := NewReader(w.Bytes())
	got, err := r.ReadLengthPrefixed8()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("【KoiKatuChara】")) {
		t.Fatalf("got %q", got)
	}
	got, err = r.ReadLengthPrefixed8()
	if err != nil || len(got) != 0 {
		t.Fatalf("empty string: got %q, err %v", got, err)
	}
}

func TestLengthPrefixed8RejectsNegativeLength(t *testing.T) {
	r := NewReader([]byte{0xff})
	if _, err := r.ReadLengthPrefixed8(); err == nil {
		t.Fatal("want error for negative length prefix")
	}
}
