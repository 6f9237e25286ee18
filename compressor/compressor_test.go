package compressor

import (
	"fmt"
	"testing"
)

func TestCompressor_Compress(t *testing.T) {
	x := 0 // an empty value

	allCompressors := func() []Compressor {
		var cs []Compressor
		for level := LevelNone; level <= LevelMax; level++ {
			tab, err := NewTable(level, x)
			if err != nil {
				panic(err)
			}
			cs = append(cs, tab)
		}
		return append(cs,
			NewUniqueEntriesTable(false, x),
			NewUniqueEntriesTable(true, x),
			NewRowDisplacementTable(x),
		)
	}

	tests := []struct {
		caption  string
		original []int
		rowCount int
		colCount int
	}{
		{
			caption: "all cells are filled",
			original: []int{
				1, 1, 1, 1, 1,
				1, 1, 1, 1, 1,
				1, 1, 1, 1, 1,
			},
			rowCount: 3,
			colCount: 5,
		},
		{
			caption: "all cells are empty",
			original: []int{
				x, x, x, x, x,
				x, x, x, x, x,
				x, x, x, x, x,
			},
			rowCount: 3,
			colCount: 5,
		},
		{
			caption: "an empty row between filled rows",
			original: []int{
				1, 1, 1, 1, 1,
				x, x, x, x, x,
				1, 1, 1, 1, 1,
			},
			rowCount: 3,
			colCount: 5,
		},
		{
			caption: "sparse rows with negative values",
			original: []int{
				-3, x, 2, x, x,
				x, 4, x, -1, x,
				-3, x, 2, x, x,
				x, x, x, x, 7,
			},
			rowCount: 4,
			colCount: 5,
		},
		{
			caption: "a single column",
			original: []int{
				1,
				x,
				2,
			},
			rowCount: 3,
			colCount: 1,
		},
	}
	for _, tt := range tests {
		for i, comp := range allCompressors() {
			t.Run(fmt.Sprintf("%v #%v", tt.caption, i), func(t *testing.T) {
				orig, err := NewOriginalTable(tt.original, tt.colCount)
				if err != nil {
					t.Fatal(err)
				}
				if err := comp.Compress(orig); err != nil {
					t.Fatal(err)
				}
				rowCount, colCount := comp.OriginalTableSize()
				if rowCount != tt.rowCount || colCount != tt.colCount {
					t.Fatalf("unexpected table size; want: %vx%v, got: %vx%v", tt.rowCount, tt.colCount, rowCount, colCount)
				}
				for row := 0; row < tt.rowCount; row++ {
					for col := 0; col < tt.colCount; col++ {
						v, err := comp.Lookup(row, col)
						if err != nil {
							t.Fatal(err)
						}
						expected := tt.original[row*tt.colCount+col]
						if v != expected {
							t.Fatalf("unexpected entry (%v, %v); want: %v, got: %v", row, col, expected, v)
						}
					}
				}
				if _, err := comp.Lookup(tt.rowCount, 0); err == nil {
					t.Fatalf("an out-of-range lookup must fail")
				}
			})
		}
	}
}

func TestNewTable_InvalidLevel(t *testing.T) {
	if _, err := NewTable(LevelMax+1, 0); err == nil {
		t.Fatal("an invalid level must be rejected")
	}
}
