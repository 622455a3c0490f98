package antenna

// Office kinds.
const (
	KindAntenna      = "antenne"
	KindHeadquarters = "siege"
)

// Office is a fixed office location shown as its own marker.
type Office struct {
	Kind      string  `json:"type_lieu"`
	Name      string  `json:"nom"`
	Antenna   string  `json:"antenne"`
	Address   string  `json:"adresse"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsHeadquarters reports whether the office is the head office.
func (o Office) IsHeadquarters() bool {
	return o.Kind == KindHeadquarters
}

// KindLabel returns the display label for the office kind.
func (o Office) KindLabel() string {
	if o.IsHeadquarters() {
		return "Siège"
	}
	return "Antenne"
}

// Title returns the panel title for the office.
func (o Office) Title() string {
	if o.Name != "" {
		return o.Name
	}
	return o.KindLabel()
}

var offices = []Office{
	{Kind: KindAntenna, Name: AlpesCentreEst, Antenna: AlpesCentreEst, Address: "10 rue Stella, 69002 Lyon", Latitude: 45.76061, Longitude: 4.83664},
	{Kind: KindAntenna, Name: NordOuestIDF, Antenna: NordOuestIDF, Address: "10 rue du Centre, 93196 Noisy-le-Grand Cedex", Latitude: 48.838387, Longitude: 2.545001},
	{Kind: KindAntenna, Name: MediterraneeGrandSud, Antenna: MediterraneeGrandSud, Address: "52 rue Liandier, 13008 Marseille", Latitude: 43.2780891, Longitude: 5.3913314},
	{Kind: KindAntenna, Name: NordEst, Antenna: NordEst, Address: "14 rue du Maréchal Juin, 67000 Strasbourg", Latitude: 48.577957, Longitude: 7.762085},
	{Kind: KindAntenna, Name: GrandSudOuest, Antenna: GrandSudOuest, Address: "1 Place Émile Blouin, 31952 Toulouse", Latitude: 43.61456, Longitude: 1.466043},
	{Kind: KindAntenna, Name: AtlantiqueGrandOuest, Antenna: AtlantiqueGrandOuest, Address: "10 boulevard Gaston Doumergue, 44964 Nantes Cedex 9", Latitude: 47.20811, Longitude: -1.544726},
	{Kind: KindHeadquarters, Name: "Siège", Antenna: "Siège", Address: "120 rue de Bercy, 75012 Paris", Latitude: 48.841095, Longitude: 2.3778439},
}

// Offices returns a copy of the office list. Office marker indexes refer to
// positions in this list.
func Offices() []Office {
	out := make([]Office, len(offices))
	copy(out, offices)
	return out
}
