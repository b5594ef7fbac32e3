package report

import "strings"

// Recognized parameter keys.
const (
	ParamFromDate     = "FROM DATE"
	ParamToDate       = "TO DATE"
	ParamBatchID      = "BATCH ID"
	ParamTagsSelected = "TAGS SELECTED"
	ParamRecordCount  = "RECORD COUNT"
	ParamPrintedBy    = "Printed By"
)

// ParamTimeLayout formats FROM DATE and TO DATE.
const ParamTimeLayout = "02/01/2006 15:04"

var paramDefaults = map[string]string{
	ParamBatchID:   "Not specified",
	ParamPrintedBy: "[no user logged in]",
}

// Params are the display values of a report run.
type Params map[string]string

// Get returns the value for key, falling back to the key's default.
func (p Params) Get(key string) string {
	if v, ok := p[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return paramDefaults[key]
}

// Has reports whether key carries a non-blank value.
func (p Params) Has(key string) bool {
	return strings.TrimSpace(p[key]) != ""
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	cp := make(Params, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}
