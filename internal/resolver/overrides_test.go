package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sydlexius/pitwall/internal/matcher"
)

func TestDefaultOverrides(t *testing.T) {
	o, err := DefaultOverrides()
	if err != nil {
		t.Fatalf("DefaultOverrides: %v", err)
	}
	if o.Version == 0 || o.Len() == 0 {
		t.Fatalf("empty table: version %d, %d entries", o.Version, o.Len())
	}

	tests := []struct {
		name string
		in   matcher.DriverInput
		want string
	}{
		{"canonical", matcher.DriverInput{FullName: "Andrea Kimi Antonelli"}, "andrea-kimi-antonelli"},
		{"alias", matcher.DriverInput{FullName: "Kimi Antonelli"}, "andrea-kimi-antonelli"},
		{"reversed order", matcher.DriverInput{FullName: "Zhou Guanyu"}, "guanyu-zhou"},
		{"diacritics", matcher.DriverInput{FullName: "Checo Perez"}, "sergio-perez"},
		{"number and surname", matcher.DriverInput{FullName: "C. Sainz", Number: 55}, "carlos-sainz"},
		{"earlier number", matcher.DriverInput{FullName: "O. Bearman", Number: 38}, "oliver-bearman"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := o.Driver(tt.in)
			if got == nil || got.Slug() != tt.want {
				t.Errorf("Driver(%+v) = %v, want %s", tt.in, got, tt.want)
			}
		})
	}

	if got := o.Driver(matcher.DriverInput{FullName: "Paul Aron", Number: 55}); got != nil {
		t.Errorf("number without matching surname returned %s", got.Slug())
	}
	if got := o.Team("Stake F1 Team Kick Sauber"); got == nil || got.Name != "Sauber" {
		t.Errorf("Team(Stake F1 Team Kick Sauber) = %v", got)
	}
	if got := o.Team("Ferrari"); got != nil {
		t.Errorf("Team(Ferrari) = %v, want nil", got)
	}
	if got := o.Circuit("Interlagos"); got == nil || got.Slug() != "autodromo-jose-carlos-pace" {
		t.Errorf("Circuit(Interlagos) = %v", got)
	}
}

func TestOverrides_NilSafe(t *testing.T) {
	var o *Overrides
	if o.Driver(matcher.DriverInput{FullName: "Max Verstappen"}) != nil || o.Team("RB") != nil || o.Circuit("Albert Park") != nil {
		t.Error("nil table matched something")
	}
	if o.Len() != 0 {
		t.Error("nil table has entries")
	}
}

func TestParseOverrides_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "key does not match slug",
			yaml:    "drivers:\n  verstappen:\n    first_name: Max\n    last_name: Verstappen\n",
			wantErr: "does not match canonical slug",
		},
		{
			name:    "missing last name",
			yaml:    "drivers:\n  max:\n    first_name: Max\n",
			wantErr: "last_name is required",
		},
		{
			name: "alias claimed twice",
			yaml: "teams:\n  haas:\n    name: Haas\n    aliases: [American Team]\n" +
				"  williams:\n    name: Williams\n    aliases: [American Team]\n",
			wantErr: "already belongs to another entry",
		},
		{
			name:    "malformed",
			yaml:    "drivers: [",
			wantErr: "parsing overrides",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOverrides([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()

	o, err := LoadOverrides(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	base, _ := DefaultOverrides()
	if o.Len() != base.Len() {
		t.Errorf("missing file changed the table: %d vs %d", o.Len(), base.Len())
	}

	path := filepath.Join(dir, "overrides.yaml")
	extra := "version: 9\nteams:\n  cadillac:\n    name: Cadillac\n    color: \"#C0C0C0\"\n    aliases:\n      - Cadillac F1 Team\n      - Cadillac Formula 1 Team\n"
	if err := os.WriteFile(path, []byte(extra), 0o600); err != nil {
		t.Fatal(err)
	}
	o, err = LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if o.Version != 9 || o.Len() != base.Len()+1 {
		t.Errorf("merged table: version %d, %d entries", o.Version, o.Len())
	}
	if got := o.Team("Cadillac Formula 1 Team"); got == nil || got.Color != "#C0C0C0" {
		t.Errorf("Team(Cadillac Formula 1 Team) = %v", got)
	}
	if got := o.Team("RB"); got == nil || got.Name != "Racing Bulls" {
		t.Errorf("built-in entry lost after merge: %v", got)
	}
}
