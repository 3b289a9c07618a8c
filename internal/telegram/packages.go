package telegram

// Package is one purchasable quota bundle.
type Package struct {
	Key   string
	Name  string
	Price float64 // Base price in USDT, the order adds the unique offset.
	Quota int
}

var packages = []Package{
	{Key: "basic", Name: "Basic", Price: 1, Quota: 25},
	{Key: "standard", Name: "Standard", Price: 5, Quota: 150},
	{Key: "premium", Name: "Premium", Price: 10, Quota: 400},
}

func packageByKey(key string) (Package, bool) {
	for _, p := range packages {
		if p.Key == key {
			return p, true
		}
	}
	return Package{}, false
}
