package systemd

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUnitFromProps(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]interface{}
		want  Unit
	}{
		{
			name: "nil props",
			want: Unit{Name: "x.service"},
		},
		{
			name:  "not found",
			props: map[string]interface{}{"LoadState": "not-found", "ActiveState": "inactive"},
			want:  Unit{Name: "x.service"},
		},
		{
			name: "running static unit",
			props: map[string]interface{}{
				"LoadState":     "loaded",
				"UnitFileState": "static",
				"ActiveState":   "active",
				"SubState":      "running",
				"Description":   "Portal service",
			},
			want: Unit{
				Name: "x.service", ActiveState: "active", SubState: "running",
				Running: true, Enabled: true, Exists: true, Description: "Portal service",
			},
		},
		{
			name: "failed disabled unit",
			props: map[string]interface{}{
				"LoadState":     "loaded",
				"UnitFileState": "disabled",
				"ActiveState":   "failed",
				"SubState":      "failed",
			},
			want: Unit{Name: "x.service", ActiveState: "failed", SubState: "failed", Exists: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unitFromProps("x.service", tt.props); got != tt.want {
				t.Errorf("unitFromProps() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDoUnitJob(t *testing.T) {
	job := func(result string) func(chan<- string) (int, error) {
		return func(ch chan<- string) (int, error) {
			ch <- result
			return 1, nil
		}
	}

	if err := doUnitJob(context.Background(), "x.service", job("done")); err != nil {
		t.Errorf("done job = %v", err)
	}

	err := doUnitJob(context.Background(), "x.service", job("failed"))
	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Result != "failed" {
		t.Errorf("failed job = %v, want JobError", err)
	}

	boom := errors.New("access denied")
	err = doUnitJob(context.Background(), "x.service", func(chan<- string) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("rejected job = %v, want %v", err, boom)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = doUnitJob(ctx, "x.service", func(chan<- string) (int, error) { return 1, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("pending job = %v, want deadline exceeded", err)
	}
}
