package storage

import (
	"fmt"
	"testing"

	"github.com/pixil98/go-testutil"
)

// testSpec is a simple ValidatingSpec for testing
type testSpec struct {
	valid bool
}

func (s *testSpec) Validate() error {
	if !s.valid {
		return fmt.Errorf("spec is invalid")
	}
	return nil
}

func TestAsset_Validate(t *testing.T) {
	tests := map[string]struct {
		asset   Asset[*testSpec]
		expErrs []string
	}{
		"valid asset": {
			asset: Asset[*testSpec]{Version: 1, Identifier: "room-1", Spec: &testSpec{valid: true}},
		},
		"version not set": {
			asset:   Asset[*testSpec]{Identifier: "room-1", Spec: &testSpec{valid: true}},
			expErrs: []string{"version must be set"},
		},
		"id not set": {
			asset:   Asset[*testSpec]{Version: 1, Spec: &testSpec{valid: true}},
			expErrs: []string{"id must be set"},
		},
		"id with punctuation": {
			asset:   Asset[*testSpec]{Version: 1, Identifier: "room_1", Spec: &testSpec{valid: true}},
			expErrs: []string{"id must be alphanumeric"},
		},
		"everything wrong": {
			asset:   Asset[*testSpec]{Spec: &testSpec{}},
			expErrs: []string{"version must be set", "id must be set", "spec is invalid"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.asset.Validate()
			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			for _, exp := range tt.expErrs {
				testutil.AssertErrorContains(t, err, exp)
			}
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := map[string]struct {
		id  string
		exp bool
	}{
		"simple":    {id: "ada", exp: true},
		"dashes":    {id: "north-gate-2", exp: true},
		"empty":     {id: "", exp: false},
		"path":      {id: "../x", exp: false},
		"with dots": {id: "a.b", exp: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "valid", ValidIdentifier(tt.id), tt.exp)
		})
	}
}
