// Package export writes filtered project lists as spreadsheets.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/project"
	"github.com/sells-group/carte/internal/viewer"
)

// SheetName is the name of the exported worksheet.
const SheetName = "Projets"

// Derived columns appended after the source fields.
const (
	ColumnCode     = "Code département"
	ColumnAntenna  = "Antenne (département)"
	ColumnCategory = "Catégorie"
)

// Columns returns the union of the field keys of the selected projects in
// first-seen order.
func Columns(projects []project.Project, indexes []int) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, i := range indexes {
		for _, f := range projects[i].Fields {
			if !seen[f.Key] {
				seen[f.Key] = true
				cols = append(cols, f.Key)
			}
		}
	}
	return cols
}

// WriteXLSX writes the projects at indexes to w as a workbook with one
// header row. Every source field gets a column, followed by the resolved
// department code, the antenna owning it and the marker category.
func WriteXLSX(w io.Writer, data *catalog.Data, indexes []int) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	cols := Columns(data.Projects, indexes)
	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}
	for _, c := range []string{ColumnCode, ColumnAntenna, ColumnCategory} {
		header.AddCell().SetString(c)
	}

	for _, i := range indexes {
		p := data.Projects[i]
		row := sheet.AddRow()
		for _, c := range cols {
			row.AddCell().SetString(p.Get(c))
		}
		code := viewer.ResolveRegion(p.Region(), data.Index)
		row.AddCell().SetString(code)
		row.AddCell().SetString(data.Index.Antenna(code))
		row.AddCell().SetString(string(p.Bucket()))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
