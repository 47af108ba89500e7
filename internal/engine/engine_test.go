package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
)

type stubEngine struct {
	probeErr error
	queryErr error
}

func (s *stubEngine) Name() string                { return "stub" }
func (s *stubEngine) Probe(context.Context) error { return s.probeErr }
func (s *stubEngine) Query(context.Context, *dataset.Dataset, string) (*ResultSet, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &ResultSet{Cols: []string{"x"}, Rows: []Row{{"x": 1}}}, nil
}

func TestSelectModes(t *testing.T) {
	ctx := context.Background()
	ok := &stubEngine{}
	down := &stubEngine{probeErr: errors.New("not loaded")}

	cases := []struct {
		name    string
		mode    Mode
		real    Prober
		want    string
		wantErr bool
	}{
		{"auto uses real engine", ModeAuto, ok, "stub", false},
		{"auto falls back", ModeAuto, down, "fallback", false},
		{"auto without real engine", ModeAuto, nil, "fallback", false},
		{"forced fallback", ModeFallback, ok, "fallback", false},
		{"sqlite available", ModeSQLite, ok, "stub", false},
		{"sqlite unavailable", ModeSQLite, down, "", true},
		{"sqlite missing", ModeSQLite, nil, "", true},
		{"unknown", Mode("duckdb"), ok, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, err := Select(ctx, tc.mode, tc.real)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got engine %s", eng.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eng.Name() != tc.want {
				t.Fatalf("got %s, want %s", eng.Name(), tc.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "AUTO": ModeAuto, " sqlite ": ModeSQLite, "fallback": ModeFallback} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("pyodide"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestExecuteClassifiesEngineErrors(t *testing.T) {
	eng := &stubEngine{queryErr: errors.New("no such column: foo")}
	_, err := Execute(context.Background(), eng, nil, "SELECT foo FROM sensor_data")
	if !errors.Is(err, ErrEvaluation) {
		t.Fatalf("expected ErrEvaluation, got %v", err)
	}
	if Kind(err) != "EvaluationError" {
		t.Fatalf("kind = %q", Kind(err))
	}

	eng = &stubEngine{queryErr: ErrUnsupportedStatement}
	_, err = Execute(context.Background(), eng, nil, "DELETE FROM sensor_data")
	if Kind(err) != "UnsupportedStatement" {
		t.Fatalf("kind = %q", Kind(err))
	}
}

func TestKind(t *testing.T) {
	if Kind(nil) != "" || Kind(ErrEmptyQuery) != "EmptyQuery" || Kind(ErrInvalidCondition) != "InvalidCondition" {
		t.Fatalf("unexpected kinds")
	}
}
