package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupMaterial(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
		want   string
	}{
		{"gi", true, "GI"},
		{"GI", true, "GI"},
		{"crc_hard", true, "CRC Hard"},
		{"CRC Hard", true, "CRC Hard"},
		{" al ", true, "AL"},
		{"steel", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, ok := LookupMaterial(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, m.Name)
		})
	}
}

func TestMaterials_OrderAndTables(t *testing.T) {
	ms := Materials()

	names := make([]string, len(ms))
	tables := map[string]bool{}
	for i, m := range ms {
		names[i] = m.Name
		tables[m.Table] = true
	}
	assert.Equal(t, []string{"GI", "GL", "PPGI", "HRC", "CRC Hard", "AL"}, names)
	assert.Len(t, tables, 6)

	ms[0].Name = "changed"
	assert.Equal(t, "GI", Materials()[0].Name)
}

func TestBuildProductSpec(t *testing.T) {
	gi, _ := LookupMaterial("gi")
	assert.Equal(t, "1_1250_0.5_镀锌", BuildProductSpec(gi, " 1250", "0.5 "))
}
