package transport

import "testing"

func TestTextDecoder_UTF8SplitAcrossChunks(t *testing.T) {
	d, err := NewTextDecoder("utf-8")
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	raw := []byte("héllo ✓\n")
	var got string
	for i := range raw {
		got += d.Decode(raw[i : i+1])
	}
	if got != "héllo ✓\n" {
		t.Fatalf("unexpected decoded text: %q", got)
	}
}

func TestTextDecoder_HoldsBackIncompleteRune(t *testing.T) {
	d, err := NewTextDecoder("utf8")
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	if got := d.Decode([]byte{'a', 0xC3}); got != "a" {
		t.Fatalf("expected only complete text, got %q", got)
	}
	if got := d.Decode([]byte{0xA9}); got != "é" {
		t.Fatalf("expected completed rune, got %q", got)
	}
}

func TestTextDecoder_FlushReplacesDanglingBytes(t *testing.T) {
	d, err := NewTextDecoder("utf-8")
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	_ = d.Decode([]byte{0xE2, 0x9C})
	if got := d.Flush(); got != "\ufffd" {
		t.Fatalf("expected replacement character, got %q", got)
	}
	if got := d.Flush(); got != "" {
		t.Fatalf("expected empty flush, got %q", got)
	}
}

func TestTextDecoder_Latin1(t *testing.T) {
	d, err := NewTextDecoder("latin1")
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if d.Name() != "windows-1252" {
		t.Fatalf("unexpected canonical name: %q", d.Name())
	}
	if got := d.Decode([]byte{'c', 'a', 'f', 0xE9}); got != "café" {
		t.Fatalf("unexpected decoded text: %q", got)
	}
}

func TestTextDecoder_LargeChunk(t *testing.T) {
	d, err := NewTextDecoder("utf-8")
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	raw := make([]byte, 3*initialDecodeBuffer)
	for i := range raw {
		raw[i] = 'x'
	}
	if got := d.Decode(raw); len(got) != len(raw) {
		t.Fatalf("expected %d decoded bytes, got %d", len(raw), len(got))
	}
}

func TestNewTextDecoder_UnknownEncoding(t *testing.T) {
	if _, err := NewTextDecoder("klingon"); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}
