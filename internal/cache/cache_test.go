package cache

import (
	"context"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"single part", []string{"news"}, "menteviva:news"},
		{"multiple parts", []string{"weather", "valencia", "ES"}, "menteviva:weather:valencia:ES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNoopAlwaysMisses(t *testing.T) {
	var s Store = Noop{}
	s.Set(context.Background(), "k", "v")
	if _, ok := s.Get(context.Background(), "k"); ok {
		t.Error("Noop must never report a hit")
	}
}
