package srs

import (
	"math"
	"testing"
)

func TestEaseFactorRange(t *testing.T) {
	if got := EaseFactor(0); got != 1.3 {
		t.Fatalf("EaseFactor(0) = %v, want 1.3", got)
	}
	if got := EaseFactor(100); math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("EaseFactor(100) = %v, want 2.5", got)
	}
	if got := EaseFactor(80); math.Abs(got-2.26) > 1e-9 {
		t.Fatalf("EaseFactor(80) = %v, want 2.26", got)
	}
}

func TestGradeInterval(t *testing.T) {
	tests := []struct {
		name       string
		mastery    int
		streak     int
		allCorrect bool
		want       int
	}{
		{"incorrect always one day", 100, 9, false, 1},
		{"incorrect ignores streak", 0, 0, false, 1},
		{"streak zero", 50, 0, true, 1},
		{"streak one", 50, 1, true, 1},
		{"streak two", 50, 2, true, 3},
		{"streak three mastery 80", 80, 3, true, 7}, // 3 × 2.26 = 6.78
		{"streak three mastery 0", 0, 3, true, 4},   // 3 × 1.3 = 3.9
		{"capped at sixty days", 100, 10, true, 60},
	}
	for _, tt := range tests {
		if got := GradeInterval(tt.mastery, tt.streak, tt.allCorrect); got != tt.want {
			t.Errorf("%s: GradeInterval(%d, %d, %v) = %d, want %d",
				tt.name, tt.mastery, tt.streak, tt.allCorrect, got, tt.want)
		}
	}
}

func TestVocabInterval(t *testing.T) {
	tests := []struct {
		name     string
		strength int
		correct  bool
		want     int
	}{
		{"incorrect always one day", 100, false, 1},
		{"low strength", 20, true, 1},
		{"below fifty", 40, true, 2},
		{"strength fifty", 50, true, 4},    // reps=2, 2 × 1.9 = 3.8
		{"strength eighty", 80, true, 23},  // reps=4, 2 × 2.26³ = 23.09
		{"capped at forty-five days", 100, true, 45}, // 2 × 2.5⁴ = 78.1
	}
	for _, tt := range tests {
		if got := VocabInterval(tt.strength, tt.correct); got != tt.want {
			t.Errorf("%s: VocabInterval(%d, %v) = %d, want %d",
				tt.name, tt.strength, tt.correct, got, tt.want)
		}
	}
}

// 两条轨道的调度必须是纯函数：复习队列和会话结算要对相同输入得到相同间隔
func TestIntervalsAreDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		if GradeInterval(73, 4, true) != GradeInterval(73, 4, true) {
			t.Fatal("GradeInterval is not deterministic")
		}
		if VocabInterval(61, true) != VocabInterval(61, true) {
			t.Fatal("VocabInterval is not deterministic")
		}
	}
}
