package transport

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

const framerSample = "boot\r\n\n  {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"ip\":\"192.168.1.5\"}}\nok\n \t \nwifi: connecting…\r\npartial"

func expectedRecords(input string) []string {
	pieces := strings.Split(input, "\n")
	var out []string
	for _, p := range pieces[:len(pieces)-1] {
		if r := trimRecord(p); r != "" {
			out = append(out, r)
		}
	}

	return out
}

func pushAll(t *testing.T, f *LineFramer, chunks []string) []string {
	t.Helper()

	var got []string
	for _, c := range chunks {
		records, err := f.Push(c)
		if err != nil {
			t.Fatalf("push %q: %v", c, err)
		}
		got = append(got, records...)
	}

	return got
}

func TestLineFramer_SingleChunk(t *testing.T) {
	f := NewLineFramer(1024)
	got := pushAll(t, f, []string{framerSample})
	want := []string{
		"boot",
		`{"jsonrpc":"2.0","id":1,"result":{"ip":"192.168.1.5"}}`,
		"ok",
		"wifi: connecting…",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records mismatch:\n got %q\nwant %q", got, want)
	}
	if f.Pending() != len("partial") {
		t.Fatalf("expected trailing partial to stay buffered, pending=%d", f.Pending())
	}
}

func TestLineFramer_EverySplitPoint(t *testing.T) {
	want := expectedRecords(framerSample)

	for i := 0; i <= len(framerSample); i++ {
		f := NewLineFramer(1024)
		got := pushAll(t, f, []string{framerSample[:i], framerSample[i:]})
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("split at %d: got %q want %q", i, got, want)
		}
	}
}

func TestLineFramer_RandomChunking(t *testing.T) {
	want := expectedRecords(framerSample)
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		var chunks []string
		rest := framerSample
		for len(rest) > 0 {
			n := 1 + rng.Intn(8)
			if n > len(rest) {
				n = len(rest)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		got := pushAll(t, NewLineFramer(1024), chunks)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round %d chunks %q: got %q want %q", round, chunks, got, want)
		}
	}
}

func TestLineFramer_TrimsByteOrderMark(t *testing.T) {
	got := pushAll(t, NewLineFramer(64), []string{"\ufeffready\n"})
	if len(got) != 1 || got[0] != "ready" {
		t.Fatalf("unexpected records: %q", got)
	}
}

func TestLineFramer_WhiteSpaceSet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "next line kept", input: "\u0085ok\u0085\n", want: []string{"\u0085ok\u0085"}},
		{name: "only next line", input: "\u0085\n", want: []string{"\u0085"}},
		{name: "nbsp and separators", input: "\u00a0x\u2028\u2029\u3000\n", want: []string{"x"}},
		{name: "tabs and vertical tab", input: "\t\vx\f\n", want: []string{"x"}},
		{name: "only nbsp", input: "\u00a0\u2028\n", want: nil},
	}

	for _, tc := range tests {
		got := pushAll(t, NewLineFramer(64), []string{tc.input})
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestLineFramer_Overflow(t *testing.T) {
	f := NewLineFramer(8)

	records, err := f.Push("ok\n0123456789")
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
	if len(records) != 1 || records[0] != "ok" {
		t.Fatalf("expected records before overflow to be returned, got %q", records)
	}
	if f.Pending() != 0 {
		t.Fatalf("expected overflowing remainder to be dropped, pending=%d", f.Pending())
	}
}

func TestLineFramer_LimitAppliesToRemainderOnly(t *testing.T) {
	f := NewLineFramer(4)
	records, err := f.Push("a long completed line\nabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("unexpected records: %q", records)
	}

	if _, err := f.Push("de"); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected overflow once the remainder grows, got %v", err)
	}
}
