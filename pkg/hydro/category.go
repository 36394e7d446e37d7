// CLAUDE:SUMMARY Splits the wide hydro API snapshot into one table per measurement category, each with its own timestamp column.
package hydro

import (
	"log/slog"

	"github.com/hazyhaar/imgw-export/pkg/table"
)

// Definition pairs a measurement column with its own timestamp column.
type Definition struct {
	ValueColumn string `json:"value_column"`
	DateColumn  string `json:"date_column"`
	Label       string `json:"label"`
}

// Definitions lists the hydro API measurement categories in display order.
var Definitions = []Definition{
	{ValueColumn: "stan_wody", DateColumn: "stan_wody_data_pomiaru", Label: "Stan wody"},
	{ValueColumn: "temperatura_wody", DateColumn: "temperatura_wody_data_pomiaru", Label: "Temperatura wody"},
	{ValueColumn: "przeplyw", DateColumn: "przeplyw_data_pomiaru", Label: "Przeplyw"},
	{ValueColumn: "zjawisko_lodowe", DateColumn: "zjawisko_lodowe_data_pomiaru", Label: "Zjawisko lodowe"},
	{ValueColumn: "zjawisko_zarastania", DateColumn: "zjawisko_zarastania_data_pomiaru", Label: "Zjawisko zarastania"},
}

// StationColumns are carried into every category table when present.
var StationColumns = []string{"id_stacji", "stacja", "rzeka", "wojewodztwo"}

// Category is one non-empty measurement table produced by Split.
type Category struct {
	Definition
	Table *table.Table
}

// Split projects t into one table per category: the present station columns
// plus the category's value and date columns, without rows whose value is
// null. Categories whose value column is absent or entirely null are omitted.
func Split(t *table.Table) []Category {
	station := presentColumns(t, StationColumns)

	var out []Category
	for _, def := range Definitions {
		if !t.Has(def.ValueColumn) {
			slog.Debug("hydro category missing", "label", def.Label, "column", def.ValueColumn)
			continue
		}
		keep := append(append([]string(nil), station...), def.ValueColumn)
		if t.Has(def.DateColumn) {
			keep = append(keep, def.DateColumn)
		}
		projected := t.Select(keep...)
		vi := projected.Index(def.ValueColumn)
		filtered := projected.Filter(func(row []any) bool { return row[vi] != nil })
		if filtered.Len() == 0 {
			slog.Debug("hydro category empty", "label", def.Label)
			continue
		}
		out = append(out, Category{Definition: def, Table: filtered})
	}
	return out
}

func presentColumns(t *table.Table, names []string) []string {
	var out []string
	for _, n := range names {
		if t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
