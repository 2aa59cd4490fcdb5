package models

import "strings"

// DataFunction is the statistic a data bite displays.
// String values match the labels stored in widget configs.
type DataFunction string

const (
	FuncCount  DataFunction = "Count"
	FuncSum    DataFunction = "Sum"
	FuncMean   DataFunction = "Mean (Average)"
	FuncMedian DataFunction = "Median"
	FuncMin    DataFunction = "Min"
	FuncMax    DataFunction = "Max"
	FuncMode   DataFunction = "Mode"
	FuncRange  DataFunction = "Range"
)

// DataFunctions lists every supported function in editor order.
var DataFunctions = []DataFunction{
	FuncCount, FuncSum, FuncMean, FuncMedian, FuncMin, FuncMax, FuncMode, FuncRange,
}

// ParseDataFunction maps a config label or short name to a DataFunction.
// Unrecognized names are returned as-is so the caller can report them.
func ParseDataFunction(s string) DataFunction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return FuncCount
	case "sum":
		return FuncSum
	case "mean", "average", "avg", "mean (average)":
		return FuncMean
	case "median":
		return FuncMedian
	case "min", "minimum":
		return FuncMin
	case "max", "maximum":
		return FuncMax
	case "mode":
		return FuncMode
	case "range":
		return FuncRange
	}
	return DataFunction(s)
}

// Known reports whether f is one of the supported functions.
func (f DataFunction) Known() bool {
	for _, k := range DataFunctions {
		if f == k {
			return true
		}
	}
	return false
}

// AggregationRequest selects the column, function and formatting of a data bite.
// A nil Precision means the natural string form of the result.
type AggregationRequest struct {
	Column       string       `json:"dataColumn"   yaml:"dataColumn"`
	Function     DataFunction `json:"dataFunction" yaml:"dataFunction"`
	FilterColumn string       `json:"filterColumn" yaml:"filterColumn"`
	FilterValue  any          `json:"filterValue"  yaml:"filterValue"`
	Precision    *int         `json:"roundToPlace,omitempty" yaml:"roundToPlace,omitempty"`
	Prefix       string       `json:"prefix"       yaml:"prefix"`
	Suffix       string       `json:"suffix"       yaml:"suffix"`
}
