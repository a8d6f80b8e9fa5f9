package engine

import (
	"errors"
	"testing"
)

func TestParamsFromWireConvention(t *testing.T) {
	t.Parallel()

	params := ParamsFrom(map[string]any{
		"x":     "$a",
		"label": "plain",
		"count": 3,
	})

	if !params["x"].IsRef() || params["x"].Key() != "a" {
		t.Fatalf("expected $a to become a context ref, got %+v", params["x"])
	}
	if params["label"].IsRef() {
		t.Fatalf("plain string must stay a literal")
	}
	if params["count"].IsRef() {
		t.Fatalf("non-string must stay a literal")
	}
}

func TestLitKeepsDollarString(t *testing.T) {
	t.Parallel()

	p := Lit("$not-a-ref")
	if p.IsRef() {
		t.Fatalf("Lit must never produce a reference")
	}
	v, err := p.resolve("x", Context{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v != "$not-a-ref" {
		t.Fatalf("expected literal passthrough, got %v", v)
	}
}

func TestRefResolvesAgainstContext(t *testing.T) {
	t.Parallel()

	v, err := Ref("a").resolve("x", Context{"a": 5})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v != 5 {
		t.Fatalf("expected 5, got %v", v)
	}
}

func TestRefMissingKey(t *testing.T) {
	t.Parallel()

	_, err := Ref("b").resolve("x", Context{"a": 5})
	var mk *MissingContextKeyError
	if !errors.As(err, &mk) {
		t.Fatalf("expected MissingContextKeyError, got %v", err)
	}
	if mk.Param != "x" || mk.Key != "b" {
		t.Fatalf("error must name both parameter and key: %+v", mk)
	}
}

func TestWireValueRoundTrip(t *testing.T) {
	t.Parallel()

	if got := Ref("a").WireValue(); got != "$a" {
		t.Fatalf("expected $a, got %v", got)
	}
	if got := Lit(7).WireValue(); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}
