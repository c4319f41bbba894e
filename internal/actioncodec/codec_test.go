package actioncodec

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeBijection(t *testing.T) {
	for _, tc := range []struct{ maxValue, components int }{
		{1, 1}, {2, 1}, {3, 1}, {2, 5}, {3, 4}, {4, 3}, {5, 2},
	} {
		codec, err := New(tc.maxValue, tc.components)
		if err != nil {
			t.Fatalf("new codec %+v: %v", tc, err)
		}
		for id := 0; id < codec.Size(); id++ {
			vec, err := codec.Decode(id)
			if err != nil {
				t.Fatalf("decode %d: %v", id, err)
			}
			back, err := codec.Encode(vec)
			if err != nil {
				t.Fatalf("encode %v: %v", vec, err)
			}
			if back != id {
				t.Fatalf("%+v: encode(decode(%d)) = %d", tc, id, back)
			}
		}
	}
}

func TestDecodeEncodeRoundTripsVectors(t *testing.T) {
	codec, err := New(3, 4)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	vec := []int{2, 0, 1, 2}
	id, err := codec.Encode(vec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if want := 2 + 0*3 + 1*9 + 2*27; id != want {
		t.Fatalf("expected id %d, got %d", want, id)
	}
	got, err := codec.Decode(id)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(vec, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateJointProductSize(t *testing.T) {
	codec, err := New(3, 3)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	ids, err := codec.EnumerateJoint([][]int{{0, 2}, {1}, {0, 1, 2}})
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(ids) != 6 {
		t.Fatalf("expected 6 ids, got %d: %v", len(ids), ids)
	}
	seen := make(map[int]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d in %v", id, ids)
		}
		seen[id] = true
	}

	var want []int
	for _, a0 := range []int{0, 2} {
		for _, a2 := range []int{0, 1, 2} {
			want = append(want, a0+1*3+a2*9)
		}
	}
	sort.Ints(want)
	got := append([]int(nil), ids...)
	sort.Ints(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("enumerated ids mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateJointFullSetsCoverCodec(t *testing.T) {
	codec, err := New(3, 4)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	full := []int{0, 1, 2}
	ids, err := codec.EnumerateJoint([][]int{full, full, full, full})
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(ids) != codec.Size() {
		t.Fatalf("expected %d ids, got %d", codec.Size(), len(ids))
	}
	for i, id := range ids {
		if id != i {
			t.Fatalf("expected first component to vary fastest, ids[%d]=%d", i, id)
		}
	}
}

func TestEnumerateJointRejectsBadSets(t *testing.T) {
	codec, err := New(3, 2)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	cases := [][][]int{
		{{0}},
		{{0}, {}},
		{{0}, {3}},
		{{1, 1}, {0}},
	}
	for _, legal := range cases {
		if _, err := codec.EnumerateJoint(legal); err == nil {
			t.Fatalf("expected error for %v", legal)
		}
	}
}

func TestCodecRangeErrors(t *testing.T) {
	codec, err := New(3, 2)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := codec.Decode(9); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := codec.Decode(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := codec.Encode([]int{0, 3}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := codec.Encode([]int{0}); !errors.Is(err, ErrLengthInvalid) {
		t.Fatalf("expected ErrLengthInvalid, got %v", err)
	}
}

func TestNewRejectsInvalidShapes(t *testing.T) {
	for _, tc := range []struct{ maxValue, components int }{
		{0, 1}, {3, 0}, {3, 64},
	} {
		if _, err := New(tc.maxValue, tc.components); !errors.Is(err, ErrInvalidCodec) {
			t.Fatalf("%+v: expected ErrInvalidCodec, got %v", tc, err)
		}
	}
}
