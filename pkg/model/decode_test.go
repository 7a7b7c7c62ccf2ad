package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodePreservesUnknownFields(t *testing.T) {
	raw := []byte(`{
		"id": 42,
		"number": 7,
		"title": "flaky test",
		"state": "open",
		"reactions": {"+1": 3},
		"node_id": "I_abc123"
	}`)
	issue, err := Decode[Issue](raw)
	if err != nil {
		t.Fatal(err)
	}
	if issue.ID != 42 || issue.Number != 7 || issue.Title != "flaky test" {
		t.Fatalf("typed fields mis-decoded: %+v", issue)
	}
	if len(issue.Extra) != 2 {
		t.Fatalf("expected 2 preserved fields, got %v", issue.Extra)
	}
	if string(issue.Extra["node_id"]) != `"I_abc123"` {
		t.Fatalf("node_id not preserved verbatim: %s", issue.Extra["node_id"])
	}
}

func TestDecodeTypeMismatchNamesField(t *testing.T) {
	raw := []byte(`{"id": 42, "number": "seven", "title": "x"}`)
	_, err := Decode[Issue](raw)
	var serr *SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	if serr.Field != "number" {
		t.Fatalf("wrong field in error: %q (%v)", serr.Field, serr)
	}
}

func TestDecodeMissingRequiredNamesField(t *testing.T) {
	raw := []byte(`{"id": 42, "title": "no number"}`)
	_, err := Decode[Issue](raw)
	var serr *SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	if serr.Field != "number" {
		t.Fatalf("wrong field in error: %q", serr.Field)
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	if _, err := Decode[Repository]([]byte(`[1,2,3]`)); err == nil {
		t.Fatal("expected error decoding an array as a resource")
	}
}

func TestDecodePullRequestRefSurvives(t *testing.T) {
	raw := []byte(`{"id": 1, "number": 2, "pull_request": {"url": "https://api.github.com/repos/o/r/pulls/2"}}`)
	issue, err := Decode[Issue](raw)
	if err != nil {
		t.Fatal(err)
	}
	if issue.PullRequestRef == nil || issue.PullRequestRef.URL == "" {
		t.Fatal("pull_request marker lost")
	}
}

func TestEncodeMergesExtraBack(t *testing.T) {
	raw := []byte(`{"id": 9, "full_name": "o/r", "name": "r", "topics": ["go","tui"]}`)
	repo, err := Decode[Repository](raw)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(repo)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if string(back["topics"]) != `["go","tui"]` {
		t.Fatalf("unknown field dropped on encode: %s", out)
	}
	if string(back["full_name"]) != `"o/r"` {
		t.Fatalf("typed field lost on encode: %s", out)
	}
}

func TestEncodeTypedFieldWins(t *testing.T) {
	repo := &Repository{
		ID:       1,
		FullName: "o/r",
		Extra:    map[string]json.RawMessage{"full_name": json.RawMessage(`"stale/value"`)},
	}
	out, err := Encode(repo)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if string(back["full_name"]) != `"o/r"` {
		t.Fatalf("stale extra overrode the typed field: %s", out)
	}
}
