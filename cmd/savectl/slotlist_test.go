package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"Single", "3", []int{3}, false},
		{"List", "1, 4,2", []int{1, 4, 2}, false},
		{"Range", "1,3-5", []int{1, 3, 4, 5}, false},
		{"Autosave", "0", []int{0}, false},
		{"Empty", "", nil, false},
		{"TrailingComma", "2,", []int{2}, false},
		{"Reversed", "5-3", nil, true},
		{"Negative", "-1", nil, true},
		{"Garbage", "a", nil, true},
		{"TooLarge", "1-100000", nil, true},
		{"DoubleDash", "1-2-3", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSlotIDs(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
