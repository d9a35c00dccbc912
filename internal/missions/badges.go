package missions

// Badge is an achievement a player can claim with a submission.
type Badge struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var Badges = []Badge{
	{Name: "Ghost Protocol", Icon: "fas fa-ghost", Description: "Never spotted by your Guide."},
	{Name: "Guide-ception", Icon: "fas fa-sync", Description: "Guide followed a stranger too."},
	{Name: "Sauce Alchemist", Icon: "fas fa-flask", Description: "Recreated a complex sauce."},
	{Name: "Spicy Sneeze", Icon: "fas fa-pepper-hot", Description: "Mirrored a high-heat plate."},
	{Name: "Double Mirror", Icon: "fas fa-users", Description: "Two players picked the same Guide."},
	{Name: "Grandma Whisperer", Icon: "fas fa-crown", Description: "Found the secret homemade gem."},
	{Name: "Tower of Babel", Icon: "fas fa-monument", Description: "Mirrored a 4\" tall vertical stack."},
	{Name: "Dessert First", Icon: "fas fa-ice-cream", Description: "Followed the guide to cake town."},
	{Name: "The Toddler Trap", Icon: "fas fa-exclamation-triangle", Description: "Followed a child. Deep regret."},
	{Name: "Clean Sweep", Icon: "fas fa-broom", Description: "Finished a 10/10 plate entirely."},
	{Name: "Iron Stomach", Icon: "fas fa-biohazard", Description: "Survived a chaotic Vacationer plate."},
	{Name: "Finishing Move", Icon: "fas fa-recycle", Description: "Left an absolutely spotless plate."},
}

var badgeIndex = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Badges))
	for _, b := range Badges {
		m[b.Name] = struct{}{}
	}
	return m
}()

func IsBadge(name string) bool {
	_, ok := badgeIndex[name]
	return ok
}
