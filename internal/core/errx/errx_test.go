package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"caller input", CallerInput("bad_args", "bad arguments", nil), KindCallerInput},
		{"transient", Transient("unreachable", "service unreachable", nil), KindTransient},
		{"internal", Internal("broken", "invariant violated", nil), KindInternal},
		{"untagged defaults to transient", errors.New("connection refused"), KindTransient},
		{"wrapped keeps kind", fmt.Errorf("call failed: %w", CallerInput("bad_args", "bad", nil)), KindCallerInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKindOfNil(t *testing.T) {
	if IsTransient(nil) || IsCallerInput(nil) {
		t.Fatal("nil error must not classify as any kind")
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Transient("unreachable", "context service unreachable", cause)

	if !errors.Is(err, cause) {
		t.Fatal("cause should be reachable via errors.Is")
	}
	if CodeOf(err) != "unreachable" {
		t.Fatalf("CodeOf = %q", CodeOf(err))
	}
	msg := err.Error()
	if msg == "" || msg == cause.Error() {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestCodeOfUntagged(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf untagged = %q, want empty", got)
	}
}
