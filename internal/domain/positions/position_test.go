package positions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Code
		wantErr bool
	}{
		{name: "exact", raw: "SS", want: Shortstop},
		{name: "lowercase", raw: "1b", want: FirstBase},
		{name: "padded", raw: " bn ", want: Bench},
		{name: "unknown", raw: "XX", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownPosition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTypeMapping(t *testing.T) {
	assert.Equal(t, TypePitcher, Pitcher.Type())
	assert.Equal(t, TypeCatcher, Catcher.Type())
	for _, c := range []Code{FirstBase, SecondBase, ThirdBase, Shortstop} {
		assert.Equal(t, TypeInfield, c.Type(), c)
	}
	for _, c := range []Code{LeftField, CenterField, RightField} {
		assert.Equal(t, TypeOutfield, c.Type(), c)
	}
	assert.Equal(t, TypeDH, Designated.Type())
	assert.Equal(t, TypeBench, Bench.Type())
}

func TestFieldingCodes(t *testing.T) {
	count := 0
	for _, c := range All() {
		if c.IsFielding() {
			count++
		}
	}
	assert.Equal(t, FieldingCount, count)
	assert.False(t, Designated.IsFielding())
	assert.False(t, Bench.IsFielding())
	assert.False(t, Code("ZZ").IsFielding())
}

func TestAllReturnsCopy(t *testing.T) {
	codes := All()
	codes[0] = "ZZ"
	assert.Equal(t, Pitcher, All()[0])
	assert.Len(t, All(), 11)
	assert.Equal(t, -1, Code("ZZ").Order())
	assert.Equal(t, 10, Bench.Order())
}
