package batch

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/config"
)

func entries(n int) []*catalog.Entry {
	out := make([]*catalog.Entry, n)
	for i := range out {
		out[i] = &catalog.Entry{MsgID: fmt.Sprintf("msg-%02d", i)}
	}
	return out
}

func TestMakePreservesOrderAndBounds(t *testing.T) {
	in := entries(12)
	batches, err := Make(in, 5)
	if err != nil {
		t.Fatalf("Make error: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	if len(batches[0].Entries) != 5 || len(batches[1].Entries) != 5 || len(batches[2].Entries) != 2 {
		t.Fatalf("batch sizes = %d,%d,%d", len(batches[0].Entries), len(batches[1].Entries), len(batches[2].Entries))
	}

	i := 0
	for _, b := range batches {
		for _, e := range b.Entries {
			if e != in[i] {
				t.Fatalf("entry order broken at %d", i)
			}
			i++
		}
	}
	for idx, b := range batches {
		if b.Index != idx {
			t.Fatalf("batch %d has index %d", idx, b.Index)
		}
	}
}

func TestMakeIsDeterministic(t *testing.T) {
	in := entries(13)
	a, err := Make(in, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Make(in, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("Make is not deterministic for identical input")
	}
}

func TestMakeEmptyInput(t *testing.T) {
	batches, err := Make(nil, 5)
	if err != nil {
		t.Fatalf("Make error: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("batches = %d, want 0", len(batches))
	}
}

func TestMakeRejectsInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Make(entries(3), size)
		var cerr *config.ConfigError
		if !errors.As(err, &cerr) {
			t.Fatalf("Make(size=%d) err = %v, want *config.ConfigError", size, err)
		}
	}
}
