package report

import "strings"

// UnitRule attaches Label to column names containing Pattern.
// Matching is case-sensitive.
type UnitRule struct {
	Pattern string
	Label   string
}

func (r UnitRule) matches(name string) bool { return strings.Contains(name, r.Pattern) }

// UnitTable is evaluated top to bottom; the first matching rule wins.
type UnitTable []UnitRule

// DefaultUnits maps plant tag prefixes to engineering units.
func DefaultUnits() UnitTable {
	return UnitTable{
		{Pattern: "TT", Label: "(Deg.C)"},
		{Pattern: "PT", Label: "(Bar)"},
		{Pattern: "TMF", Label: "(Kg/Hr)"},
		{Pattern: "MTR", Label: "(LPH)"},
		{Pattern: "MFM", Label: "(LPH)"},
		{Pattern: "OZ", Label: "(PPMV)"},
		{Pattern: "RLT", Label: "(%)"},
		{Pattern: "PH", Label: "(pH)"},
		{Pattern: "pH", Label: "(pH)"},
	}
}

// Unit returns the label of the first rule matching name, or "".
func (t UnitTable) Unit(name string) string {
	for _, r := range t {
		if r.matches(name) {
			return r.Label
		}
	}
	return ""
}

// Header returns the header cell text for a column: the name, and the unit
// on a second line when one applies.
func (t UnitTable) Header(name string) string {
	if u := t.Unit(name); u != "" {
		return name + "\n" + u
	}
	return name
}
