package person

// Person is the single resource exposed by the service.
type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SeedNames lists the people every fresh store starts with, in id order.
func SeedNames() []string {
	return []string{"Jane", "Josh", "Gordon", "Tammie"}
}
