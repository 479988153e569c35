package runtime

import (
	"testing"
)

type stubHandler struct {
	typ  string
	runs int
}

func (h *stubHandler) Type() string { return h.typ }

func (h *stubHandler) Run(*Context) error {
	h.runs++
	return nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{typ: "draft_generate"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := r.Get("draft_generate")
	if !ok {
		t.Fatalf("Get: handler not found")
	}
	if got != h {
		t.Fatalf("Get: wrong handler: %#v", got)
	}
	if _, ok := r.Get("unknown_type"); ok {
		t.Fatalf("Get unknown_type: want miss")
	}
}

func TestRegistryRejectsDuplicatesAndInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatalf("Register nil: want error")
	}
	if err := r.Register(&stubHandler{typ: ""}); err == nil {
		t.Fatalf("Register empty type: want error")
	}
	if err := r.Register(&stubHandler{typ: "draft_generate"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubHandler{typ: "draft_generate"}); err == nil {
		t.Fatalf("Register duplicate: want error")
	}
}
