package engine

import (
	"reflect"
	"testing"

	"github.com/rowan/genbridge/internal/domain"
)

func TestVisiblePaths(t *testing.T) {
	missing := false
	checked := true

	tests := []struct {
		name string
		jobs []domain.Job
		want []string
	}{
		{
			name: "empty",
			jobs: nil,
			want: nil,
		},
		{
			name: "preserves job and output order",
			jobs: []domain.Job{
				{ID: "new", Outputs: []domain.JobOutput{
					{ImagePath: "out/3.png"},
					{ImagePath: "out/4.png"},
				}},
				{ID: "old", Outputs: []domain.JobOutput{
					{ImagePath: "out/1.png"},
				}},
			},
			want: []string{"out/3.png", "out/4.png", "out/1.png"},
		},
		{
			name: "deduplicates by path",
			jobs: []domain.Job{
				{ID: "a", Outputs: []domain.JobOutput{{ImagePath: "out/x.png"}}},
				{ID: "b", Outputs: []domain.JobOutput{{ImagePath: "out/x.png"}, {ImagePath: "out/y.png"}}},
			},
			want: []string{"out/x.png", "out/y.png"},
		},
		{
			name: "filters known-missing outputs only",
			jobs: []domain.Job{
				{ID: "a", Outputs: []domain.JobOutput{
					{ImagePath: "out/gone.png", Exists: &missing},
					{ImagePath: "out/ok.png", Exists: &checked},
					{ImagePath: "out/unchecked.png"},
					{ImagePath: ""},
				}},
			},
			want: []string{"out/ok.png", "out/unchecked.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisiblePaths(tt.jobs)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("VisiblePaths = %v, want %v", got, tt.want)
			}
		})
	}
}
