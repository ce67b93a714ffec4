package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file.tar", "normal-file.tar"},
		{"file:with:colons", "file_with_colons"},
		{"file<with>brackets", "file_with_brackets"},
		{"file/with\\slashes", "file_with_slashes"},
		{"file|with|pipes", "file_with_pipes"},
		{"file?with*wildcards", "file_with_wildcards"},
		{"file\"with\"quotes", "file_with_quotes"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"trailing spaces   ", "trailing spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"dog", "dog"},
		{"  hot dog  ", "hot dog"},
		{"cats/dogs", "cats_dogs"},
		{"..", ""},
		// "e" + combining acute accent composes to a single rune under NFC.
		{"cafe\u0301", "caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeLabel(tt.input); got != tt.want {
				t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLayout_For(t *testing.T) {
	layout := Layout{BaseDir: "/data"}
	dirs := layout.For("dog")

	if dirs.Archives != filepath.Join("/data", "tar", "dog") {
		t.Errorf("Archives = %q", dirs.Archives)
	}
	if dirs.Train != filepath.Join("/data", "train", "dog") {
		t.Errorf("Train = %q", dirs.Train)
	}
	if dirs.Validation != filepath.Join("/data", "validation", "dog") {
		t.Errorf("Validation = %q", dirs.Validation)
	}

	target := dirs.Target("n02085620")
	want := filepath.Join("/data", "tar", "dog", "n02085620.tar")
	if target.Path != want {
		t.Errorf("Target.Path = %q, want %q", target.Path, want)
	}
	if target.ID != "n02085620" {
		t.Errorf("Target.ID = %q", target.ID)
	}
	if got := layout.LockPath(); got != filepath.Join("/data", ".imagenet-dl", "run.lock") {
		t.Errorf("LockPath = %q", got)
	}
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Instruction
		wantErr bool
	}{
		{
			name:  "object form",
			input: `{"instructions": [{"label": "dog", "wnid": "n02084071", "recursive": true}]}`,
			want:  []Instruction{{Label: "dog", RootID: "n02084071", Recursive: true}},
		},
		{
			name:  "array form keeps order",
			input: `[{"label": " cat ", "wnid": "n02121808"}, {"label": "dog", "wnid": "n02084071"}]`,
			want: []Instruction{
				{Label: "cat", RootID: "n02121808"},
				{Label: "dog", RootID: "n02084071"},
			},
		},
		{name: "missing label", input: `[{"wnid": "n02121808"}]`, wantErr: true},
		{name: "missing wnid", input: `[{"label": "cat"}]`, wantErr: true},
		{name: "empty", input: `{"instructions": []}`, wantErr: true},
		{name: "invalid json", input: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseManifest([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d instructions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("instruction %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestExpandInstructions(t *testing.T) {
	got, err := ExpandInstructions(" dog ", "n02084071, ,n02085374", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Instruction{
		{Label: "dog", RootID: "n02084071", Recursive: true},
		{Label: "dog", RootID: "n02085374", Recursive: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, err := ExpandInstructions("dog", " , ", false); err == nil {
		t.Error("expected error for empty WNID list")
	}
	if _, err := ExpandInstructions("", "n02084071", false); err == nil {
		t.Error("expected error for empty label")
	}
}

func TestValidationCount(t *testing.T) {
	tests := []struct {
		total, percent, want int
	}{
		{0, 10, 0},
		{9, 10, 0},
		{10, 10, 1},
		{19, 10, 1},
		{100, 25, 25},
		{7, 0, 0},
		{7, 100, 7},
	}
	for _, tt := range tests {
		if got := ValidationCount(tt.total, tt.percent); got != tt.want {
			t.Errorf("ValidationCount(%d, %d) = %d, want %d", tt.total, tt.percent, got, tt.want)
		}
	}
}

func TestRunOutcome_Succeeded(t *testing.T) {
	ok := RunOutcome{Instructions: []InstructionOutcome{{Resolved: 3, Attempted: 3, ExtractionWarnings: 1}}}
	if !ok.Succeeded() {
		t.Error("extraction warnings alone should not fail a run")
	}

	failedID := RunOutcome{Instructions: []InstructionOutcome{{Resolved: 2, Attempted: 2, Failed: 1}}}
	if failedID.Succeeded() {
		t.Error("a failed id should fail the run")
	}

	failedResolve := RunOutcome{Instructions: []InstructionOutcome{{}, {Err: errors.New("lookup failed")}}}
	if failedResolve.Succeeded() {
		t.Error("a failed instruction should fail the run")
	}

	totals := RunOutcome{Instructions: []InstructionOutcome{
		{Resolved: 2, Skipped: 1, Bytes: 10},
		{Resolved: 3, Failed: 1, Bytes: 5},
	}}.Totals()
	if totals.Resolved != 5 || totals.Skipped != 1 || totals.Failed != 1 || totals.Bytes != 15 {
		t.Errorf("unexpected totals: %+v", totals)
	}
}
