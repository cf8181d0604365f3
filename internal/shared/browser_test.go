package shared

import (
	"path/filepath"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tt := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.goos, func(t *testing.T) {
			cmd, err := browserCommand(tc.goos, "http://localhost:3000")
			if (err != nil) != tc.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if got := filepath.Base(cmd.Args[0]); got != tc.want {
				t.Errorf("browserCommand() program = %v, want %v", got, tc.want)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "http://localhost:3000" {
				t.Errorf("expected url as last argument, got %v", last)
			}
		})
	}
}
