package exam_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want exam.Kind
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 0},
		{"direct", exam.Conflictf("taken"), exam.KindConflict},
		{"wrapped", fmt.Errorf("load: %w", exam.NotFoundf("Test not found")), exam.KindNotFound},
		{"joined", errors.Join(errors.New("publish failed"), exam.NotFoundf("Test not found")), exam.KindNotFound},
		{"joined and wrapped", fmt.Errorf("save: %w", errors.Join(errors.New("x"), exam.Deniedf("no"))), exam.KindAccessDenied},
		{"sentinel", exam.ErrChunkTooLarge, exam.KindChunkTooLarge},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := exam.KindOf(c.err); got != c.want {
				t.Fatalf("KindOf(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}
