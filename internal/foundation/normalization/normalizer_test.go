package normalization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type color string

const (
	red   color = "red"
	green color = "green"
)

func TestNormalizer(t *testing.T) {
	n := NewNormalizer(map[string]color{"Red": red, "green": green}, red)

	tests := []struct {
		in   string
		want color
	}{
		{"red", red},
		{"  GREEN ", green},
		{"blue", red},
		{"", red},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, n.Normalize(tt.in), tt.in)
	}
	require.Equal(t, []string{"green", "red"}, n.Keys())
}

func TestNormalizer_Parse(t *testing.T) {
	n := NewNormalizer(map[string]color{"red": red, "green": green}, red)

	v, err := n.Parse(" Green")
	require.NoError(t, err)
	require.Equal(t, green, v)

	v, err = n.Parse("")
	require.NoError(t, err)
	require.Equal(t, red, v)

	_, err = n.Parse("blue")
	require.ErrorContains(t, err, "green, red")
}
