package errs

import (
	"errors"
	"testing"
)

func TestDecodeRemoteShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"row not found"}`, "row not found"},
		{"msg field", `{"msg":"bad password"}`, "bad password"},
		{"error string", `{"error":"invalid_grant"}`, "invalid_grant"},
		{"error object", `{"error":{"message":"nested failure"}}`, "nested failure"},
		{"error description", `{"error_description":"described failure"}`, "described failure"},
		{"details only", `{"details":"the details"}`, "the details"},
		{"hint only", `{"hint":"try again"}`, "try again"},
		{"plain text body", `gateway timeout`, "gateway timeout"},
	}

	for _, tc := range cases {
		remote := DecodeRemote(500, []byte(tc.body))
		got := Normalize(remote, "fallback")
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeNeverBlank(t *testing.T) {
	const fallback = "Something went wrong"

	cases := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"blank string", "   "},
		{"empty struct", &Remote{}},
		{"empty struct value", Remote{}},
	}
	for _, tc := range cases {
		if got := Normalize(tc.raw, fallback); got != fallback {
			t.Fatalf("%s: got %q, want fallback", tc.name, got)
		}
	}

	if got := Normalize(errors.New("boom"), fallback); got != "boom" {
		t.Fatalf("error payload: got %q", got)
	}
	if got := Normalize("direct", fallback); got != "direct" {
		t.Fatalf("string payload: got %q", got)
	}
}

func TestNormalizeResolutionOrder(t *testing.T) {
	remote := &Remote{
		Message:   "first",
		ErrorText: "second",
		NestedMsg: "third",
		Details:   "fourth",
		Hint:      "fifth",
	}
	if got := Normalize(remote, "x"); got != "first" {
		t.Fatalf("got %q, want message field first", got)
	}

	remote.Message = ""
	if got := Normalize(remote, "x"); got != "second" {
		t.Fatalf("got %q, want error text next", got)
	}

	remote.ErrorText = ""
	if got := Normalize(remote, "x"); got != "third" {
		t.Fatalf("got %q, want nested message next", got)
	}
}

func TestClassifyCodes(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"PGRST116", MsgNotFound},
		{"23505", MsgAlreadyExists},
		{"42P01", MsgNoSchema},
		{"42501", MsgNoPermission},
	}
	for _, tc := range cases {
		got, ok := Classify(&Remote{Code: tc.code})
		if !ok || got != tc.want {
			t.Fatalf("code %s: got %q ok=%v, want %q", tc.code, got, ok, tc.want)
		}
	}
}

func TestClassifySubstrings(t *testing.T) {
	if got, ok := Classify(errors.New("JWT expired")); !ok || got != MsgAuthExpired {
		t.Fatalf("jwt: got %q ok=%v", got, ok)
	}
	if got, ok := Classify(errors.New("network is unreachable")); !ok || got != MsgNetwork {
		t.Fatalf("network: got %q ok=%v", got, ok)
	}
	if _, ok := Classify(errors.New("something else entirely")); ok {
		t.Fatalf("expected unclassified error to fall through")
	}
}

func TestIsMissingRelation(t *testing.T) {
	if !IsMissingRelation(&Remote{Code: "42P01"}) {
		t.Fatalf("expected 42P01 to count as missing relation")
	}
	if !IsMissingRelation(errors.New(`relation "communities" does not exist`)) {
		t.Fatalf("expected postgres text to count as missing relation")
	}
	if !IsMissingRelation(errors.New("no such table: communities")) {
		t.Fatalf("expected sqlite text to count as missing relation")
	}
	if IsMissingRelation(errors.New("permission denied")) {
		t.Fatalf("permission error should not count as missing relation")
	}
}

func TestIsConflict(t *testing.T) {
	if !IsConflict(&Remote{Code: "23505"}) {
		t.Fatalf("expected 23505 to be a conflict")
	}
	if !IsConflict(errors.New("UNIQUE constraint failed: community_members.user_id")) {
		t.Fatalf("expected sqlite unique violation to be a conflict")
	}
	if IsConflict(errors.New("timeout")) {
		t.Fatalf("timeout should not be a conflict")
	}
}

type captureNotifier struct {
	messages []string
}

func (n *captureNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

func TestReportRemoteAlwaysNotifies(t *testing.T) {
	n := &captureNotifier{}

	ReportRemote(n, &Remote{Code: "42P01"}, "loading communities")
	ReportRemote(n, errors.New("weird failure"), "loading communities")

	if len(n.messages) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(n.messages))
	}
	if n.messages[0] != MsgNoSchema {
		t.Fatalf("classified notice: got %q", n.messages[0])
	}
	if n.messages[1] == "" {
		t.Fatalf("unclassified notice must not be blank")
	}
}
