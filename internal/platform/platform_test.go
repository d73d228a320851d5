package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromGOOS(t *testing.T) {
	tests := []struct {
		goos    string
		want    Kind
		wantErr bool
	}{
		{"linux", Linux, false},
		{"darwin", Darwin, false},
		{"windows", Windows, false},
		{"freebsd", "", true},
		{"plan9", "", true},
		{"js", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.goos, func(t *testing.T) {
			got, err := fromGOOS(tc.goos)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDetectCurrentPlatform(t *testing.T) {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		kind, err := Detect()
		require.NoError(t, err)
		require.Equal(t, runtime.GOOS, kind.String())
	default:
		_, err := Detect()
		require.ErrorIs(t, err, ErrUnsupported)
	}
}

func TestElevationHint(t *testing.T) {
	require.Contains(t, Linux.ElevationHint(), "root")
	require.Contains(t, Darwin.ElevationHint(), "root")
	require.Contains(t, Windows.ElevationHint(), "Administrator")
}
