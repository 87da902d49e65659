package attribute

import "sort"

// Selected returns the selected key, if any, as a set-shaped slice.
func (d SingleSelectData) Selected() []string {
	if d.Value == "" {
		return nil
	}
	return []string{d.Value}
}

// Selected returns the selected scale option, if any.
func (d ScaleData) Selected() []string {
	if d.Value == "" {
		return nil
	}
	return []string{d.Value}
}

// SelectedRows returns the keys of rows with at least one selected cell.
func (d Matrix1DData) SelectedRows() []string {
	var out []string
	for row, cells := range d.Value {
		for _, on := range cells {
			if on {
				out = append(out, row)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// SelectedCells returns the keys of every selected cell across all rows.
func (d Matrix1DData) SelectedCells() []string {
	var out []string
	for _, cells := range d.Value {
		for cell, on := range cells {
			if on {
				out = append(out, cell)
			}
		}
	}
	sort.Strings(out)
	return out
}

// matrix2DCell is one tagged (row, sub-row, column) intersection.
type matrix2DCell struct {
	row, subRow, column string
	subColumns          []string
}

func (d Matrix2DData) cells() []matrix2DCell {
	var out []matrix2DCell
	for row, subRows := range d.Value {
		for subRow, columns := range subRows {
			for column, subColumns := range columns {
				if subColumns == nil {
					continue
				}
				out = append(out, matrix2DCell{row: row, subRow: subRow, column: column, subColumns: subColumns})
			}
		}
	}
	return out
}

// SelectedRows returns rows with at least one tagged intersection.
func (d Matrix2DData) SelectedRows() []string {
	return d.collect(func(c matrix2DCell) []string { return []string{c.row} })
}

// SelectedSubRows returns sub-rows with at least one tagged intersection.
func (d Matrix2DData) SelectedSubRows() []string {
	return d.collect(func(c matrix2DCell) []string { return []string{c.subRow} })
}

// SelectedColumns returns columns with at least one tagged intersection.
func (d Matrix2DData) SelectedColumns() []string {
	return d.collect(func(c matrix2DCell) []string { return []string{c.column} })
}

// SelectedSubColumns returns every sub-column tagged anywhere.
func (d Matrix2DData) SelectedSubColumns() []string {
	return d.collect(func(c matrix2DCell) []string { return c.subColumns })
}

func (d Matrix2DData) collect(pick func(matrix2DCell) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range d.cells() {
		for _, k := range pick(c) {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
