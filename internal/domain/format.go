package domain

// GameFormat identifica el reglamento de la mesa. Se persiste como smallint,
// NO reordenar las constantes.
type GameFormat int

const (
	FormatCommander GameFormat = iota + 1
	FormatStandard
	FormatSealed
	FormatModern
	FormatVintage
	FormatLegacy
	FormatPauper
	FormatPioneer
	FormatTwoHeadedGiant
)

var formatNames = map[GameFormat]string{
	FormatCommander:      "Commander",
	FormatStandard:       "Standard",
	FormatSealed:         "Sealed",
	FormatModern:         "Modern",
	FormatVintage:        "Vintage",
	FormatLegacy:         "Legacy",
	FormatPauper:         "Pauper",
	FormatPioneer:        "Pioneer",
	FormatTwoHeadedGiant: "Two Headed Giant",
}

func (f GameFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "Commander"
}

func (f GameFormat) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// Formats: lista estable para armar las opciones del slash command.
func Formats() []GameFormat {
	out := make([]GameFormat, 0, len(formatNames))
	for f := FormatCommander; f <= FormatTwoHeadedGiant; f++ {
		out = append(out, f)
	}
	return out
}
