package resources

import "testing"

func TestLoadSharedTemplates(t *testing.T) {
	if err := LoadSharedTemplates(); err != nil {
		t.Fatalf("LoadSharedTemplates: %v", err)
	}
	// A second call is a no-op.
	if err := LoadSharedTemplates(); err != nil {
		t.Fatalf("second call: %v", err)
	}
}
