package nlp

import (
	"testing"
)

type fakeState struct {
	iter    int
	history []float64
}

func (s fakeState) Iteration() int       { return s.iter }
func (s fakeState) History() []float64   { return s.history }
func (s fakeState) Breakdown() Breakdown { return Breakdown{} }

func TestStopConditions(t *testing.T) {
	tests := []struct {
		name    string
		cond    StopCondition
		state   fakeState
		want    bool
		wantErr bool
	}{
		{"budget not reached", StopAfterIterations{N: 3}, fakeState{iter: 2}, false, false},
		{"budget reached", StopAfterIterations{N: 3}, fakeState{iter: 3}, true, false},
		{"zero budget", StopAfterIterations{}, fakeState{iter: 10}, false, true},
		{"plateau short history", StopOnPlateau{Window: 2, RelTol: 1e-3}, fakeState{history: []float64{5, 5}}, false, false},
		{"plateau flat", StopOnPlateau{Window: 2, RelTol: 1e-3}, fakeState{history: []float64{9, 5, 5.001, 5.002}}, true, false},
		{"plateau moving", StopOnPlateau{Window: 2, RelTol: 1e-3}, fakeState{history: []float64{9, 7, 6, 5}}, false, false},
		{"plateau small magnitude", StopOnPlateau{Window: 1, RelTol: 1e-3}, fakeState{history: []float64{1e-4, 2e-4}}, true, false},
		{"plateau bad window", StopOnPlateau{}, fakeState{}, false, true},
		{"any: first stops", AnyStop{StopAfterIterations{N: 1}, StopOnPlateau{Window: 1}}, fakeState{iter: 1}, true, false},
		{"any: failure skipped", AnyStop{StopOnPlateau{}, StopAfterIterations{N: 1}}, fakeState{iter: 1}, true, false},
		{"any: failure reported", AnyStop{StopOnPlateau{}, StopAfterIterations{N: 5}}, fakeState{iter: 1}, false, true},
		{"func", StopFunc(func(s SolveState) (bool, error) { return s.Iteration() == 7, nil }), fakeState{iter: 7}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.ShouldStop(tt.state)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ShouldStop() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ShouldStop() = %v, want %v", got, tt.want)
			}
		})
	}
}
