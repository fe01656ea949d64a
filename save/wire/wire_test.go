// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", `{"a":1}`, `{"a":1}`},
		{"Divider", `a||b`, `a*DOUBLEPIPE*b`},
		{"SinglePipe", `a|b`, `a|b`},
		{"TriplePipe", `a|||b`, `a*DOUBLEPIPE*|b`},
		{"LeadingPipe", `|a`, `*PIPE*a`},
		{"TrailingPipe", `a|`, `a*PIPE*`},
		{"Star", `*DOUBLEPIPE*`, `**DOUBLEPIPE**`},
		{"Empty", ``, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Escape([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if bytes.Contains(got, []byte(Divider)) {
				t.Errorf("Escape(%q) still contains the divider", tt.input)
			}
		})
	}
}

func TestJoinSplitRoundTrip(t *testing.T) {
	blocks := []string{
		"",
		"plain",
		"||",
		"|",
		"|||",
		"a||b||c",
		"ends with pipe|",
		"|starts with pipe",
		"*DOUBLEPIPE*",
		"**",
		"*PIPE*|*",
		"\x00\x01|\xff||",
	}
	for _, h := range blocks {
		for _, s := range blocks {
			raw := Join([]byte(h), []byte(s))
			gotH, gotS, err := Split(raw)
			require.NoError(t, err, "header %q scenes %q", h, s)
			require.Equal(t, h, string(gotH))
			require.Equal(t, s, string(gotS))

			onlyH, err := SplitHeader(raw)
			require.NoError(t, err)
			require.Equal(t, h, string(onlyH))

			onlyS, err := SplitScenes(raw)
			require.NoError(t, err)
			require.Equal(t, s, string(onlyS))
		}
	}
}

func TestSplitErrors(t *testing.T) {
	_, _, err := Split([]byte("no divider here"))
	require.ErrorIs(t, err, ErrMissingDivider)

	_, _, err = Split([]byte("*X||ok"))
	require.ErrorIs(t, err, ErrMalformed)

	_, _, err = Split([]byte("ok||*"))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = SplitHeader(nil)
	require.ErrorIs(t, err, ErrMissingDivider)
}
