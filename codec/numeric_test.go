package codec

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestNumericPassthrough(t *testing.T) {
	c := Default()
	cases := []struct {
		in   any
		wire string
		out  any
	}{
		{5, "5", int64(5)},
		{int8(-3), "-3", int64(-3)},
		{uint32(7), "7", int64(7)},
		{uint64(math.MaxUint64), "18446744073709551615", uint64(math.MaxUint64)},
		{1.5, "1.5", 1.5},
		{8.0, "8", int64(8)},
		{1e21, "1e+21", 1e21},
		{-0.25, "-0.25", -0.25},
	}
	for _, tc := range cases {
		b, err := c.Encode(tc.in)
		if err != nil {
			t.Fatalf("Encode(%v): %v", tc.in, err)
		}
		if string(b) != tc.wire {
			t.Fatalf("Encode(%v) = %q, want %q", tc.in, b, tc.wire)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("Decode(%q): %v", b, err)
		}
		if got != tc.out {
			t.Fatalf("Decode(%q) = %#v, want %#v", b, got, tc.out)
		}
	}
}

func TestNumericRoundTripGeneric(t *testing.T) {
	c := Default()
	values := []any{
		"text",
		"5", // a numeric-looking string is quoted by JSON, so not ambiguous
		"",
		true,
		[]any{"a", 1.5},
		map[string]any{"name": "Ada", "tags": []any{"x"}},
	}
	for _, v := range values {
		b, err := c.Encode(v)
		if err != nil {
			t.Fatalf("Encode(%#v): %v", v, err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("Decode(%q): %v", b, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("round trip %#v -> %q -> %#v", v, b, got)
		}
	}
}

func TestNumericNonFiniteUsesInner(t *testing.T) {
	c := Numeric{Inner: Msgpack[any]{}}
	b, err := c.Encode(math.Inf(1))
	if err != nil {
		t.Fatalf("Encode(+Inf): %v", err)
	}
	if LooksNumeric(b) {
		t.Fatalf("+Inf must not be written as a bare number: %q", b)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f, ok := got.(float64); !ok || !math.IsInf(f, 1) {
		t.Fatalf("got %#v, want +Inf", got)
	}
}

func TestNumericRejectsAmbiguousInner(t *testing.T) {
	c := Numeric{Inner: String{}}
	if _, err := c.Encode("42"); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	b, err := c.Encode("forty-two")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, _ := c.Decode(b); got != "forty-two" {
		t.Fatalf("got %#v", got)
	}
}

func TestLooksNumeric(t *testing.T) {
	yes := []string{"0", "-1", "12.5", "1e10", "1E-7", "-3.25e+2"}
	no := []string{"", "-", "1.", ".5", "+1", "1e", "NaN", "Inf", "0x10", " 1", "1 ", `"1"`}
	for _, s := range yes {
		if !LooksNumeric([]byte(s)) {
			t.Fatalf("LooksNumeric(%q) = false", s)
		}
	}
	for _, s := range no {
		if LooksNumeric([]byte(s)) {
			t.Fatalf("LooksNumeric(%q) = true", s)
		}
	}
}

func TestInnerCodecsDecodeGenericMaps(t *testing.T) {
	in := map[string]any{"name": "Ada"}
	inners := map[string]Codec[any]{
		"json":    JSON[any]{},
		"msgpack": Msgpack[any]{},
		"cbor":    MustCBOR[any](true),
	}
	for name, inner := range inners {
		c := Numeric{Inner: inner}
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s Encode: %v", name, err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s Decode: %v", name, err)
		}
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("%s: got %#v", name, got)
		}
	}
}

func TestProtoAnyRoundTrip(t *testing.T) {
	c := Numeric{Inner: ProtoAny{}}
	msgs := []proto.Message{
		wrapperspb.String("hello"),
		mustStruct(t, map[string]any{"id": "u1", "score": 3.0}),
	}
	for _, m := range msgs {
		b, err := c.Encode(m)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		pm, ok := got.(proto.Message)
		if !ok || !proto.Equal(pm, m) {
			t.Fatalf("got %v, want %v", got, m)
		}
	}
	if _, err := c.Encode(struct{}{}); err == nil {
		t.Fatalf("expected error for non-proto value")
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Numeric{Inner: Limit[any]{Inner: JSON[any]{}, MaxDecode: 8}}
	b, err := c.Encode("a long enough string")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(b); err == nil {
		t.Fatalf("expected size error")
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func TestMsgpackUsesJSONFieldNames(t *testing.T) {
	type user struct {
		Name  string `json:"name"`
		Admin bool   `json:"admin,omitempty"`
	}
	b, err := Msgpack[user]{}.Encode(user{Name: "ada"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Msgpack[any]{}.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"name": "ada"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode = %#v, want %#v", got, want)
	}
}

type celsius float64

type level uint8

func TestNumericNamedTypes(t *testing.T) {
	c := Default()
	cases := []struct {
		in   any
		wire string
		out  any
	}{
		{5 * time.Second, "5000000000", int64(5_000_000_000)},
		{celsius(21.5), "21.5", 21.5},
		{level(3), "3", int64(3)},
	}
	for _, tc := range cases {
		b, err := c.Encode(tc.in)
		if err != nil {
			t.Fatalf("Encode(%v): %v", tc.in, err)
		}
		if string(b) != tc.wire {
			t.Fatalf("Encode(%v) = %q, want %q", tc.in, b, tc.wire)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("Decode(%q): %v", b, err)
		}
		if got != tc.out {
			t.Fatalf("Decode(%q) = %#v, want %#v", b, got, tc.out)
		}
	}
}
