// Package antenna holds the static ownership data: which antenna owns which
// department, the antenna fill colors, and the fixed office locations.
package antenna

// Antenna names.
const (
	AlpesCentreEst       = "Alpes Centre-Est"
	AtlantiqueGrandOuest = "Atlantique Grand-Ouest"
	GrandSudOuest        = "Grand Sud-Ouest"
	MediterraneeGrandSud = "Méditerranée Grand-Sud"
	NordEst              = "Nord-Est"
	NordOuestIDF         = "Nord-Ouest Île-de-France"
)

// Names lists the six antennas in legend order.
var Names = []string{
	AtlantiqueGrandOuest,
	NordEst,
	GrandSudOuest,
	AlpesCentreEst,
	MediterraneeGrandSud,
	NordOuestIDF,
}

// NoColor is the fill used for departments no antenna owns.
const NoColor = "rgba(255,255,255,0.00)"

var colors = map[string]string{
	AtlantiqueGrandOuest: "rgba(255,105,180,0.35)", // pink
	NordEst:              "rgba(135,206,250,0.35)", // light blue
	GrandSudOuest:        "rgba(30,144,255,0.28)",  // dark blue
	AlpesCentreEst:       "rgba(60,179,113,0.28)",  // green
	MediterraneeGrandSud: "rgba(255,215,0,0.26)",   // yellow
	NordOuestIDF:         "rgba(138,43,226,0.24)",  // purple
}

// Color returns the translucent fill color for an antenna.
func Color(name string) string {
	if c, ok := colors[name]; ok {
		return c
	}
	return NoColor
}

// defaultTable maps the canonical department key (see normalize.Key) to its
// owning antenna.
var defaultTable = map[string]string{
	// Alpes Centre-Est
	"ain":            AlpesCentreEst,
	"allier":         AlpesCentreEst,
	"ardeche":        AlpesCentreEst,
	"cantal":         AlpesCentreEst,
	"cote d or":      AlpesCentreEst,
	"drome":          AlpesCentreEst,
	"haute loire":    AlpesCentreEst,
	"haute savoie":   AlpesCentreEst,
	"isere":          AlpesCentreEst,
	"jura":           AlpesCentreEst,
	"loire":          AlpesCentreEst,
	"nievre":         AlpesCentreEst,
	"puy de dome":    AlpesCentreEst,
	"rhone":          AlpesCentreEst,
	"saone et loire": AlpesCentreEst,
	"savoie":         AlpesCentreEst,
	"yonne":          AlpesCentreEst,

	// Atlantique Grand-Ouest
	"charente":          AtlantiqueGrandOuest,
	"charente maritime": AtlantiqueGrandOuest,
	"cotes d armor":     AtlantiqueGrandOuest,
	"deux sevres":       AtlantiqueGrandOuest,
	"finistere":         AtlantiqueGrandOuest,
	"ille et vilaine":   AtlantiqueGrandOuest,
	"indre":             AtlantiqueGrandOuest,
	"indre et loire":    AtlantiqueGrandOuest,
	"loire atlantique":  AtlantiqueGrandOuest,
	"loir et cher":      AtlantiqueGrandOuest,
	"maine et loire":    AtlantiqueGrandOuest,
	"mayenne":           AtlantiqueGrandOuest,
	"morbihan":          AtlantiqueGrandOuest,
	"sarthe":            AtlantiqueGrandOuest,
	"vendee":            AtlantiqueGrandOuest,
	"vienne":            AtlantiqueGrandOuest,

	// Grand Sud-Ouest
	"ariege":               GrandSudOuest,
	"aude":                 GrandSudOuest,
	"aveyron":              GrandSudOuest,
	"correze":              GrandSudOuest,
	"creuse":               GrandSudOuest,
	"dordogne":             GrandSudOuest,
	"gers":                 GrandSudOuest,
	"gironde":              GrandSudOuest,
	"haute garonne":        GrandSudOuest,
	"hautes pyrenees":      GrandSudOuest,
	"haute vienne":         GrandSudOuest,
	"landes":               GrandSudOuest,
	"lot":                  GrandSudOuest,
	"lot et garonne":       GrandSudOuest,
	"pyrenees atlantiques": GrandSudOuest,
	"pyrenees orientales":  GrandSudOuest,
	"tarn":                 GrandSudOuest,
	"tarn et garonne":      GrandSudOuest,

	// Méditerranée Grand-Sud
	"alpes de haute provence": MediterraneeGrandSud,
	"alpes maritimes":         MediterraneeGrandSud,
	"bouches du rhone":        MediterraneeGrandSud,
	"corse du sud":            MediterraneeGrandSud,
	"gard":                    MediterraneeGrandSud,
	"haute corse":             MediterraneeGrandSud,
	"hautes alpes":            MediterraneeGrandSud,
	"herault":                 MediterraneeGrandSud,
	"lozere":                  MediterraneeGrandSud,
	"var":                     MediterraneeGrandSud,
	"vaucluse":                MediterraneeGrandSud,

	// Nord-Est
	"ardennes":              NordEst,
	"aube":                  NordEst,
	"bas rhin":              NordEst,
	"doubs":                 NordEst,
	"haute marne":           NordEst,
	"haute saone":           NordEst,
	"haut rhin":             NordEst,
	"marne":                 NordEst,
	"meurthe et moselle":    NordEst,
	"meuse":                 NordEst,
	"moselle":               NordEst,
	"territoire de belfort": NordEst,
	"vosges":                NordEst,

	// Nord-Ouest Île-de-France
	"aisne":             NordOuestIDF,
	"calvados":          NordOuestIDF,
	"cher":              NordOuestIDF,
	"essonne":           NordOuestIDF,
	"eure":              NordOuestIDF,
	"eure et loir":      NordOuestIDF,
	"hauts de seine":    NordOuestIDF,
	"loiret":            NordOuestIDF,
	"manche":            NordOuestIDF,
	"nord":              NordOuestIDF,
	"oise":              NordOuestIDF,
	"orne":              NordOuestIDF,
	"paris":             NordOuestIDF,
	"pas de calais":     NordOuestIDF,
	"seine et marne":    NordOuestIDF,
	"seine maritime":    NordOuestIDF,
	"seine saint denis": NordOuestIDF,
	"somme":             NordOuestIDF,
	"val de marne":      NordOuestIDF,
	"val d oise":        NordOuestIDF,
	"yvelines":          NordOuestIDF,
}

// LegendEntry is one row of the map legend.
type LegendEntry struct {
	Antenna string `json:"antenna"`
	Color   string `json:"color"`
}

// Legend returns the legend rows in display order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(Names))
	for _, n := range Names {
		out = append(out, LegendEntry{Antenna: n, Color: colors[n]})
	}
	return out
}
