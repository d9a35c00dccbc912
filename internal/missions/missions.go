package missions

import (
	"fmt"
	"math/rand"
)

var archetypes = []string{
	"Structural Engineer", "Sauce Scientist", "Grandma",
	"Protein Purist", "Plate-Cleaner", "Vacationer", "Scanner",
}

var modifiers = []string{
	"but double the sauce",
	"but arrange everything symmetrically",
	"and eat with your non-dominant hand",
	"but skip the carbs",
	"and add a random dessert item",
	"while maintaining 'Ghost Protocol'",
	"but you must finish in under 8 minutes",
	"and rate every bite out loud",
	"but only take items that are round",
	"and take the exact same drink",
}

var staticMissions = []string{
	"The Monochromatic Challenge: Your entire plate must be one color family.",
	"The Tower of Babel: Build a salad at least 4 inches high.",
	"Dessert First: Start with a full dessert plate, then proceed to dinner.",
	"The Texture Nightmare: Combine crunchy, slimy, and hot items on one plate.",
	"International Waters: Put items from 3 different cuisines on one plate.",
	"The Minimalist: Create a beautiful plate with only 3 items, widely spaced.",
	"Sauce Boss: Create a dipping sauce using at least 4 different condiments.",
	"The Zero Waste Mission: Earn 'Finishing Move' this round.",
	"Find the person with the fullest plate and mirror their most precarious item.",
}

// Generator draws bingo missions. It is not safe for concurrent use unless
// built on a locked source.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// Next returns a mirror mission 60% of the time, otherwise a static one.
func (g *Generator) Next() string {
	if g.rnd.Float64() > 0.4 {
		return fmt.Sprintf("Find a %s and mirror their plate, %s.", pick(g.rnd, archetypes), pick(g.rnd, modifiers))
	}
	return pick(g.rnd, staticMissions)
}

func pick(r *rand.Rand, from []string) string {
	return from[r.Intn(len(from))]
}
