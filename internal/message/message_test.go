package message

import (
	"bufio"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for senderID := 0; senderID <= 255; senderID += 17 {
		for _, typ := range []Type{HeartBeat, Elect, Alive, Victory} {
			m := New(uint8(senderID), typ)
			got, err := Decode(string(Encode(m)))
			if err != nil {
				t.Fatalf("decode(encode(%v)) error: %v", m, err)
			}
			if got != m {
				t.Fatalf("decode(encode(%v)) = %v, want %v", m, got, m)
			}
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"foo",
		"1",
		"1:",
		":1",
		"1:4",
		"1:-1",
		"a:1",
		"1:a",
		"1:2:3",
		"",
	}
	for _, c := range cases {
		if _, err := Decode(c); err == nil {
			t.Errorf("Decode(%q) = nil error, want error", c)
		}
	}
}

func TestDecodeTrimsWhitespaceAndNewline(t *testing.T) {
	got, err := Decode("  7:3\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := New(7, Victory); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadZeroBytes(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := Read(r)
	if err != ErrZeroBytes {
		t.Fatalf("got err %v, want ErrZeroBytes", err)
	}
}

func TestReadMalformedLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("not-a-message\n"))
	_, err := Read(r)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestReadMultipleFrames(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("1:0\n2:1\n"))
	first, err := Read(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != New(1, HeartBeat) {
		t.Fatalf("got %v, want HeartBeat from 1", first)
	}
	second, err := Read(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != New(2, Elect) {
		t.Fatalf("got %v, want Elect from 2", second)
	}
	if _, err := Read(r); err != ErrZeroBytes {
		t.Fatalf("got err %v, want ErrZeroBytes at stream end", err)
	}
}
