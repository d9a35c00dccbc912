package models

import "time"

type Breakdown struct {
	Taste    int `json:"taste" bson:"taste"`
	Cohesion int `json:"cohesion" bson:"cohesion"`
	Regret   int `json:"regret" bson:"regret"`
	Waste    int `json:"waste" bson:"waste"`
}

// Player is the per-table, per-principal record. A score of 0 means the
// player joined but has not submitted a plate yet.
type Player struct {
	TableID      string     `json:"table_id" bson:"table_id"`
	UID          string     `json:"uid" bson:"uid"`
	Name         string     `json:"name" bson:"name"`
	Score        float64    `json:"score" bson:"score"`
	PhotoURL     string     `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	Breakdown    *Breakdown `json:"breakdown,omitempty" bson:"breakdown,omitempty"`
	Badges       []string   `json:"badges,omitempty" bson:"badges,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty" bson:"submitted_at,omitempty"`
	InHallOfFame bool       `json:"in_hall_of_fame" bson:"in_hall_of_fame"`
	// MigratedFrom is the anonymous uid this plate was moved from.
	MigratedFrom string     `json:"migrated_from,omitempty" bson:"migrated_from,omitempty"`
}

func (p *Player) IsScored() bool {
	return p.Score > 0
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (p *Player) Clone() *Player {
	c := *p
	if p.Breakdown != nil {
		b := *p.Breakdown
		c.Breakdown = &b
	}
	if p.Badges != nil {
		c.Badges = append([]string(nil), p.Badges...)
	}
	if p.SubmittedAt != nil {
		at := *p.SubmittedAt
		c.SubmittedAt = &at
	}
	return &c
}

// HallOfFameEntry is a detached snapshot of a scored player.
type HallOfFameEntry struct {
	ID                 string    `json:"id" bson:"_id"`
	UserID             string    `json:"user_id" bson:"user_id"`
	OriginTableID      string    `json:"origin_table_id" bson:"origin_table_id"`
	HallOfFameJoinedAt time.Time `json:"hall_of_fame_joined_at" bson:"hall_of_fame_joined_at"`
	Player             `bson:",inline"`
}
