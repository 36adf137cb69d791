package resolution

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeActionWireNames(t *testing.T) {
	raw, err := EncodeAction(FailResolutions("getPost", [][]any{{1}, {2}}, []any{"a"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"FAIL_RESOLUTIONS","selectorName":"getPost","argsList":[[1],[2]],"errors":["a"]}`
	if string(raw) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", raw, want)
	}
}

func TestDecodeAction(t *testing.T) {
	action, err := DecodeAction([]byte(`{"type":" start_resolution ","selectorName":"getPost","args":[1,{"id":"x"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Action{
		Type:         ActionStartResolution,
		SelectorName: "getPost",
		Args:         []any{json.Number("1"), map[string]any{"id": "x"}},
	}
	if diff := cmp.Diff(want, action); diff != "" {
		t.Fatalf("decoded action mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodedActionAddressesSameRecord(t *testing.T) {
	action, err := DecodeAction([]byte(`{"type":"FINISH_RESOLUTION","selectorName":"getPost","args":[1]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	state := Reduce(NewState(), action)
	if !HasFinishedResolution(state, "getPost", 1) {
		t.Fatalf("expected json.Number(1) and 1 to share a key")
	}
}

func TestDecodeActionErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		target  error
	}{
		{"unknown type", `{"type":"RESET"}`, ErrUnknownAction},
		{"missing type", `{"selectorName":"getPost"}`, ErrUnknownAction},
		{"non-string type", `{"type":3}`, ErrUnknownAction},
		{"missing selector", `{"type":"START_RESOLUTION","args":[1]}`, ErrSelectorNameRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeAction([]byte(tc.payload)); !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}

	if _, err := DecodeAction([]byte(`{"type":"START_RESOLUTION","selectorName":"x","extra":1}`)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestDecodeActionMap(t *testing.T) {
	payload := map[string]any{"type": "invalidate_resolution_for_store"}
	action, err := DecodeActionMap(payload)
	if err != nil {
		t.Fatalf("decode map: %v", err)
	}
	if action.Type != ActionInvalidateResolutionForStore {
		t.Fatalf("unexpected type %q", action.Type)
	}
	if payload["type"] != "invalidate_resolution_for_store" {
		t.Fatalf("expected payload to be left untouched")
	}
}

func TestEncodeActionKeepsErrorText(t *testing.T) {
	raw, err := EncodeAction(FailResolution("getPost", []any{1}, errors.New("boom")))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"FAIL_RESOLUTION","selectorName":"getPost","args":[1],"error":"boom"}`
	if string(raw) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", raw, want)
	}

	action, err := DecodeAction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := GetResolutionError(Reduce(NewState(), action), "getPost", 1)
	if !ok || got != "boom" {
		t.Fatalf("expected error text after round trip, got %#v (%v)", got, ok)
	}
}

func TestEncodeActionBatchedErrors(t *testing.T) {
	action := FailResolutions("getPost", [][]any{{1}, {2}, {3}}, []any{errors.New("a"), nil, map[string]any{"code": 404}})
	raw, err := EncodeAction(action)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeAction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []any{"a", nil, map[string]any{"code": json.Number("404")}}
	if diff := cmp.Diff(want, decoded.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if _, ok := action.Errors[0].(error); !ok {
		t.Fatalf("expected encoding to leave the action untouched")
	}
}
