// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import "testing"

func TestCaseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		want       int
		wantCaseID string
		wantRest   []string
		wantErr    bool
	}{
		{name: "no case id", args: []string{"abc123"}, want: 1, wantCaseID: "", wantRest: []string{"abc123"}},
		{name: "with case id", args: []string{"case-1", "abc123"}, want: 1, wantCaseID: "case-1", wantRest: []string{"abc123"}},
		{name: "zero wanted, none given", args: nil, want: 0, wantCaseID: ""},
		{name: "zero wanted, case id given", args: []string{"case-1"}, want: 0, wantCaseID: "case-1"},
		{name: "too many", args: []string{"a", "b", "c"}, want: 1, wantErr: true},
		{name: "too few", args: nil, want: 1, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			caseID, rest, err := caseArgs(test.args, test.want, "usage")
			if test.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("caseArgs: %v", err)
			}
			if caseID != test.wantCaseID {
				t.Errorf("caseID = %q, want %q", caseID, test.wantCaseID)
			}
			if len(rest) != len(test.wantRest) {
				t.Fatalf("rest = %v, want %v", rest, test.wantRest)
			}
			for i := range rest {
				if rest[i] != test.wantRest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], test.wantRest[i])
				}
			}
		})
	}
}
