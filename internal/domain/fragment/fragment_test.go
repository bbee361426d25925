package fragment

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	tests := []struct {
		label    Label
		pos      Position
		expected ID
	}{
		{label: "a", pos: 1, expected: "a01"},
		{label: "c", pos: 9, expected: "c09"},
		{label: "l", pos: 12, expected: "l12"},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, NewID(tt.label, tt.pos))
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		wantLabel Label
		wantPos   Position
		wantErr   bool
	}{
		{name: "padded", id: "a01", wantLabel: "a", wantPos: 1},
		{name: "two digits", id: "k12", wantLabel: "k", wantPos: 12},
		{name: "upper case label", id: "B03", wantLabel: "b", wantPos: 3},
		{name: "no digits", id: "abc", wantErr: true},
		{name: "no label", id: "01", wantErr: true},
		{name: "zero position", id: "a00", wantErr: true},
		{name: "too short", id: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, pos, err := ParseID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantPos, pos)
		})
	}
}

func TestID_Path(t *testing.T) {
	assert.Equal(t, "randomiser/a01.mp3", ID("a01").Path("randomiser", "mp3"))
	assert.Equal(t, "cells/l12.mp3", ID("l12").Path("cells", ".mp3"))
}

func TestSelection(t *testing.T) {
	s := Selection{"a01", "b02", "a03"}

	assert.Equal(t, []string{"a01", "b02", "a03"}, s.IDs())
	assert.True(t, s.Contains("b02"))
	assert.False(t, s.Contains("b01"))
	assert.Equal(t, []string{"m/a01.ogg", "m/b02.ogg", "m/a03.ogg"}, s.Paths("m", "ogg"))
}

func TestPool(t *testing.T) {
	p := NewPool(3, []Label{"a", "b"})

	assert.Equal(t, 3, p.Positions())
	assert.Equal(t, []Label{"a", "b"}, p.Candidates(2))
	assert.Empty(t, p.EmptyPositions())
	assert.True(t, p.Contains("b03"))
	assert.False(t, p.Contains("c01"))
	assert.False(t, p.Contains("a04"))

	p.Set(2, nil)
	assert.Equal(t, []Position{2}, p.EmptyPositions())
}

func TestPool_SetCopiesLabels(t *testing.T) {
	labels := []Label{"a"}
	p := NewPool(1, labels)
	labels[0] = "z"

	assert.Equal(t, []Label{"a"}, p.Candidates(1))
}

func TestNormalizeLabels(t *testing.T) {
	assert.Equal(t, []Label{"a", "b", "c"}, NormalizeLabels([]string{"c", "A", " b ", "a", ""}))
	assert.Empty(t, NormalizeLabels(nil))
}
