package typeid

import (
	"strings"
	"testing"
)

func TestNewAndValidate(t *testing.T) {
	tests := []struct {
		gen    func() string
		prefix string
	}{
		{NewUserID, PrefixUser},
		{NewTemplateID, PrefixTemplate},
		{NewElementID, PrefixElement},
		{NewSessionID, PrefixSession},
		{NewAssetID, PrefixAsset},
	}
	for _, tt := range tests {
		id := tt.gen()
		if !strings.HasPrefix(id, tt.prefix+"_") {
			t.Errorf("id %q does not start with %q", id, tt.prefix+"_")
		}
		if err := Validate(id, tt.prefix); err != nil {
			t.Errorf("Validate(%q, %q) error = %v", id, tt.prefix, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	if err := Validate(NewTemplateID(), PrefixElement); err == nil {
		t.Error("Validate() accepted an id with the wrong prefix")
	}
	if err := Validate("not-an-id", PrefixTemplate); err == nil {
		t.Error("Validate() accepted a malformed id")
	}
}
