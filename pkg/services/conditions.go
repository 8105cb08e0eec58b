package services

// SoilType はフィールドの土壌区分です。未知の文字列もそのまま扱い、どの述語にも一致しません。
type SoilType string

const (
	SoilLoamy SoilType = "Loamy"
	SoilClay  SoilType = "Clay"
	SoilSandy SoilType = "Sandy"
	SoilSilty SoilType = "Silty"
)

// SoilTypes は画面で選択可能な土壌区分の一覧です。
var SoilTypes = []SoilType{SoilLoamy, SoilClay, SoilSandy, SoilSilty}

// InRange は lo <= v <= hi を判定します（両端を含む）。
func InRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// AtLeast は v >= min を判定します。
func AtLeast(v, min float64) bool {
	return v >= min
}

// SoilIn は soil が候補のいずれかと完全一致するかを判定します。
func SoilIn(soil string, candidates ...SoilType) bool {
	for _, c := range candidates {
		if soil == string(c) {
			return true
		}
	}
	return false
}
