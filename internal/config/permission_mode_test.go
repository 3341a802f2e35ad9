package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePermissionMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "acceptAll", want: PermissionModeBypassPermissions},
		{in: "prompt", want: PermissionModeDefault},
		{in: "plan", want: PermissionModePlan},
		{in: "dontAsk", want: PermissionModeDontAsk},
		{in: "yolo", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePermissionMode(tc.in)
			if tc.wantErr {
				require.ErrorContains(t, err, "unknown permission mode")

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
