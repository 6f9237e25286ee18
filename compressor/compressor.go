// Package compressor shrinks the parsing tables. Level 1 shares identical
// rows; level 2 additionally overlays the shared rows by row displacement.
package compressor

import (
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	LevelNone         = 0
	LevelUnique       = 1
	LevelDisplacement = 2
	LevelMax          = LevelDisplacement
)

type OriginalTable struct {
	entries  []int
	rowCount int
	colCount int
}

func NewOriginalTable(entries []int, colCount int) (*OriginalTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("entries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &OriginalTable{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

type Compressor interface {
	Compress(orig *OriginalTable) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)
}

var (
	_ Compressor = &UniqueEntriesTable{}
	_ Compressor = &RowDisplacementTable{}
	_ Compressor = &Table{}
)

// Table is a parsing table stored at one of the compression levels.
// Exactly one of Entries and Unique is set.
type Table struct {
	Level    int                 `json:"level"`
	RowCount int                 `json:"row_count"`
	ColCount int                 `json:"col_count"`
	Entries  []int               `json:"entries,omitempty"`
	Unique   *UniqueEntriesTable `json:"unique,omitempty"`
}

func NewTable(level int, emptyValue int) (*Table, error) {
	if level < LevelNone || level > LevelMax {
		return nil, fmt.Errorf("compression level must be between %v and %v; passed: %v", LevelNone, LevelMax, level)
	}
	t := &Table{
		Level: level,
	}
	switch level {
	case LevelUnique:
		t.Unique = NewUniqueEntriesTable(false, emptyValue)
	case LevelDisplacement:
		t.Unique = NewUniqueEntriesTable(true, emptyValue)
	}
	return t, nil
}

func (t *Table) Compress(orig *OriginalTable) error {
	t.RowCount = orig.rowCount
	t.ColCount = orig.colCount
	if t.Unique == nil {
		t.Entries = append([]int(nil), orig.entries...)
		return nil
	}
	return t.Unique.Compress(orig)
}

func (t *Table) Lookup(row, col int) (int, error) {
	if t.Unique != nil {
		return t.Unique.Lookup(row, col)
	}
	if row < 0 || row >= t.RowCount || col < 0 || col >= t.ColCount {
		return 0, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return t.Entries[row*t.ColCount+col], nil
}

func (t *Table) OriginalTableSize() (int, int) {
	return t.RowCount, t.ColCount
}

// UniqueEntriesTable stores each distinct row once. The distinct rows are
// kept either as they are or in a RowDisplacementTable.
type UniqueEntriesTable struct {
	UniqueEntries    []int                 `json:"unique_entries,omitempty"`
	Displaced        *RowDisplacementTable `json:"displaced,omitempty"`
	RowNums          []int                 `json:"row_nums"`
	OriginalRowCount int                   `json:"original_row_count"`
	OriginalColCount int                   `json:"original_col_count"`
	EmptyValue       int                   `json:"empty_value"`
	displace         bool
}

func NewUniqueEntriesTable(displace bool, emptyValue int) *UniqueEntriesTable {
	return &UniqueEntriesTable{
		EmptyValue: emptyValue,
		displace:   displace,
	}
}

func (tab *UniqueEntriesTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	if tab.Displaced != nil {
		return tab.Displaced.Lookup(tab.RowNums[row], col)
	}
	return tab.UniqueEntries[tab.RowNums[row]*tab.OriginalColCount+col], nil
}

func (tab *UniqueEntriesTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *UniqueEntriesTable) Compress(orig *OriginalTable) error {
	var uniqueEntries []int
	rowNums := make([]int, orig.rowCount)
	hash2RowNum := map[string]int{}
	buf := make([]byte, binary.MaxVarintLen64)
	for row := 0; row < orig.rowCount; row++ {
		start := row * orig.colCount
		rowEntries := orig.entries[start : start+orig.colCount]

		key := make([]byte, 0, orig.colCount*2)
		for _, e := range rowEntries {
			n := binary.PutVarint(buf, int64(e))
			key = append(key, buf[:n]...)
		}
		rowNum, ok := hash2RowNum[string(key)]
		if !ok {
			rowNum = len(hash2RowNum)
			hash2RowNum[string(key)] = rowNum
			uniqueEntries = append(uniqueEntries, rowEntries...)
		}
		rowNums[row] = rowNum
	}

	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	if !tab.displace {
		tab.UniqueEntries = uniqueEntries
		return nil
	}

	unique, err := NewOriginalTable(uniqueEntries, orig.colCount)
	if err != nil {
		return err
	}
	rd := NewRowDisplacementTable(tab.EmptyValue)
	if err := rd.Compress(unique); err != nil {
		return err
	}
	tab.Displaced = rd
	return nil
}

// ForbiddenValue marks a cell of Bounds no row owns.
const ForbiddenValue = -1

type RowDisplacementTable struct {
	OriginalRowCount int   `json:"original_row_count"`
	OriginalColCount int   `json:"original_col_count"`
	EmptyValue       int   `json:"empty_value"`
	Entries          []int `json:"entries"`
	Bounds           []int `json:"bounds"`
	RowDisplacement  []int `json:"row_displacement"`
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Lookup(row int, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	i := tab.RowDisplacement[row] + col
	if i >= len(tab.Bounds) || tab.Bounds[i] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[i], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

type rowInfo struct {
	rowNum      int
	nonEmptyCol []int
}

// Compress places the densest rows first, each at the lowest displacement
// where its non-empty cells land on free slots.
func (tab *RowDisplacementTable) Compress(orig *OriginalTable) error {
	rows := make([]rowInfo, orig.rowCount)
	for row := 0; row < orig.rowCount; row++ {
		rows[row].rowNum = row
		for col := 0; col < orig.colCount; col++ {
			if orig.entries[row*orig.colCount+col] != tab.EmptyValue {
				rows[row].nonEmptyCol = append(rows[row].nonEmptyCol, col)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return len(rows[i].nonEmptyCol) > len(rows[j].nonEmptyCol)
	})

	var entries, bounds []int
	var used []bool
	grow := func(n int) {
		for len(entries) < n {
			entries = append(entries, tab.EmptyValue)
			bounds = append(bounds, ForbiddenValue)
			used = append(used, false)
		}
	}

	bottom := 0
	rowDisplacement := make([]int, orig.rowCount)
	next := 0
	for _, r := range rows {
		if len(r.nonEmptyCol) == 0 {
			continue
		}

		d := next
	PLACE:
		for {
			grow(d + orig.colCount)
			for _, col := range r.nonEmptyCol {
				if used[d+col] {
					d++
					continue PLACE
				}
			}
			break
		}

		rowDisplacement[r.rowNum] = d
		for _, col := range r.nonEmptyCol {
			entries[d+col] = orig.entries[r.rowNum*orig.colCount+col]
			bounds[d+col] = r.rowNum
			used[d+col] = true
		}
		if d+orig.colCount > bottom {
			bottom = d + orig.colCount
		}
		next = d + 1
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries[:bottom]
	tab.Bounds = bounds[:bottom]
	tab.RowDisplacement = rowDisplacement

	return nil
}
