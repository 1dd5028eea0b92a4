// Package shipping implements the fixed city tariff table. It is a static
// external lookup, not part of the transactional core; checkout always
// re-quotes server-side and never trusts a client-supplied figure.
package shipping

var tariffs = map[string]int64{
	"Bogotá":   12000,
	"Medellín": 15000,
	"Cali":     15000,
}

const defaultCost = 18000

type TariffTable struct{}

func NewTariffTable() *TariffTable {
	return &TariffTable{}
}

// Quote returns the shipping cost in COP and the delivery estimate in days
// for a destination city. Unknown cities get the national default.
func (*TariffTable) Quote(city string) (int64, int) {
	cost, ok := tariffs[city]
	if !ok {
		cost = defaultCost
	}
	eta := 3
	if city == "Bogotá" {
		eta = 2
	}
	return cost, eta
}
