package sales

// defaultMarketplaces maps the program account that terminates a sale
// transaction to the marketplace's display name.
var defaultMarketplaces = map[string]string{
	"MEisE1HzehtrDpAAT8PnLHjpSSkRYakotTuJRPjTpo8":  "Magic Eden",
	"HZaWndaNWHFDd9Dhk5pqUUtsmoBCqzb1MLu3NAh1VX6B": "Alpha Art",
	"617jbWo616ggkDxvW1Le8pV38XLbVSyWY8ae6QUmGBAU": "Solsea",
	"CJsLwbP1iu5DuUikHEJnLfANgKy6stB2uFgvBBHoyxwz": "Solanart",
	"A7p8451ktDCHq5yYaHczeLMYsjRsAkzc3hCXcSrwYHU7": "Digital Eyes",
	"AmK5g2XcyptVLCFESBCJqoSfwV3znGoVYQnqEnaAZKWn": "Exchange Art",
}

// Registry is a read-only account → marketplace name table.
// It is built once at startup and safe for concurrent reads.
type Registry struct {
	byAccount map[string]string
}

// NewRegistry copies entries into a new Registry.
func NewRegistry(entries map[string]string) *Registry {
	byAccount := make(map[string]string, len(entries))
	for account, name := range entries {
		byAccount[account] = name
	}
	return &Registry{byAccount: byAccount}
}

// DefaultRegistry returns the marketplaces the bot recognizes out of the box.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultMarketplaces)
}

// Lookup returns the marketplace for account. Unknown accounts report false;
// that means "unsupported", not failure.
func (r *Registry) Lookup(account string) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.byAccount[account]
	return name, ok
}

// Len reports the number of known marketplaces.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byAccount)
}
