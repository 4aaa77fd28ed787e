package shared

import (
	"errors"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	t.Cleanup(func() { getRuntime = original })

	tt := []struct {
		goos     string
		wantName string
		wantArgs int
		wantErr  bool
	}{
		{goos: "darwin", wantName: "open", wantArgs: 1},
		{goos: "linux", wantName: "xdg-open", wantArgs: 1},
		{goos: "windows", wantName: "cmd", wantArgs: 3},
		{goos: "plan9", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.goos, func(t *testing.T) {
			getRuntime = func() string { return tc.goos }

			name, args, err := browserCommand("http://127.0.0.1:3000")
			if tc.wantErr {
				if !errors.Is(err, ErrServiceUnavailable) {
					t.Fatalf("expected ErrServiceUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tc.wantName {
				t.Errorf("expected %s, got %s", tc.wantName, name)
			}
			if len(args) != tc.wantArgs {
				t.Errorf("expected %d args, got %d", tc.wantArgs, len(args))
			}
			if args[len(args)-1] != "http://127.0.0.1:3000" {
				t.Errorf("expected url as last argument, got %v", args)
			}
		})
	}
}
