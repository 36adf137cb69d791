//go:build js_eval

package resolution

import "testing"

func TestJSEvaluatorFilter(t *testing.T) {
	inspector := NewInspector(WithEvaluator(NewJSEvaluator(JSWithProgramCache(NewProgramCache()))))
	entries, err := inspector.Filter(inspectorFixture(), `selector === "getPost" && args[0] > 1`)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
}
