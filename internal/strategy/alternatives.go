package strategy

// DefaultAlternatives is returned for symbols without a configured mapping.
var DefaultAlternatives = []string{"SPY", "QQQ"}

// ReferenceAlternatives is the built-in substitute table.
var ReferenceAlternatives = map[string][]string{
	"AAPL":  {"MSFT", "GOOGL"},
	"MSFT":  {"AAPL", "GOOGL"},
	"TSLA":  {"NIO", "RIVN"},
	"GOOGL": {"META", "AAPL"},
}

// AlternativeMapper resolves a symbol to substitute symbols. It is immutable after construction.
type AlternativeMapper struct {
	table    map[string][]string
	fallback []string
}

// NewAlternativeMapper copies table and fallback. An empty fallback means DefaultAlternatives.
func NewAlternativeMapper(table map[string][]string, fallback []string) *AlternativeMapper {
	t := make(map[string][]string, len(table))
	for sym, alts := range table {
		t[sym] = append([]string(nil), alts...)
	}
	if len(fallback) == 0 {
		fallback = DefaultAlternatives
	}
	return &AlternativeMapper{table: t, fallback: append([]string(nil), fallback...)}
}

// Lookup never fails; unknown symbols get the fallback list.
func (m *AlternativeMapper) Lookup(symbol string) []string {
	if alts, ok := m.table[symbol]; ok {
		return append([]string(nil), alts...)
	}
	return append([]string(nil), m.fallback...)
}
