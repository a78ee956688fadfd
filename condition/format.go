package condition

import "github.com/khanyong/kyyquant-ai-solution-sub002/types"

// DetectFormat classifies a condition list: standard when every item
// carries left/right operands, legacy when every item carries an indicator
// name, mixed otherwise. An empty list counts as standard — there is
// nothing left to convert.
func DetectFormat(list []types.Condition) types.Format {
	if len(list) == 0 {
		return types.FormatStandard
	}
	standard, legacy := 0, 0
	for _, c := range list {
		switch {
		case c.IsStandard():
			standard++
		case c.IsLegacy():
			legacy++
		}
	}
	switch {
	case standard == len(list):
		return types.FormatStandard
	case legacy == len(list):
		return types.FormatLegacy
	default:
		return types.FormatMixed
	}
}
