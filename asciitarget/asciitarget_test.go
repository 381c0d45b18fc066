package asciitarget

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadParsesHeaderAndPoints(t *testing.T) {
	got, err := readFrom(strings.NewReader("3 2\n1.5 -2.25 3.0\n4.0 5.0 6.0\n"))
	require.NoError(t, err)
	require.Equal(t, 3, got.NDim)
	require.Equal(t, 2, got.NPoints)
	require.Equal(t, []float64{1.5, -2.25, 3.0, 4.0, 5.0, 6.0}, got.XYZ)
}

func TestReadRejectsTooManyDimensions(t *testing.T) {
	_, err := readFrom(strings.NewReader("4 1\n1 2 3 4\n"))
	require.Error(t, err)
}

func TestScientificFormatIsParseableByReadFrom(t *testing.T) {
	text := "         2         1\n" +
		"   1.23456780e+02   -9.87654320e-03\n"
	got, err := readFrom(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, got.NDim)
	require.InDelta(t, 123.456780, got.XYZ[0], 1e-6)
	require.InDelta(t, -0.00987654320, got.XYZ[1], 1e-9)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	tmp := t.TempDir() + "/targets.dat"
	p := Points{
		NDim:    3,
		NPoints: 2,
		XYZ:     []float64{1.5, -2.25, 3.0, 4.0, 5.0, 6.0},
		NVar:    1,
		Var:     []float64{10.0, 20.0},
	}
	Write(tmp, p)

	f, err := os.Open(tmp)
	require.NoError(t, err)
	defer f.Close()
	got, err := readFrom(f)
	require.NoError(t, err)
	require.Equal(t, 3, got.NDim)
	require.Equal(t, 2, got.NPoints)
	require.InDeltaSlice(t, p.XYZ, got.XYZ, 1e-6)
}
