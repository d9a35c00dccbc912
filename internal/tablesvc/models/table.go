package models

import "time"

const (
	TableOpen   = "open"
	TableClosed = "closed"
)

// Table is a shared game session. ShortCode is nil once the table has aged
// out of the activity window and its code was released.
type Table struct {
	ID        string    `json:"id" bson:"_id"`
	ShortCode *string   `json:"short_code" bson:"short_code"`
	Host      string    `json:"host" bson:"host"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Status    string    `json:"status" bson:"status"`
}

func (t *Table) IsClosed() bool {
	return t.Status == TableClosed
}

// Code returns the short code or "" when it was released.
func (t *Table) Code() string {
	if t.ShortCode == nil {
		return ""
	}
	return *t.ShortCode
}

// VisitedTable records that a persistent user joined a table.
type VisitedTable struct {
	UserID   string    `json:"user_id" bson:"user_id"`
	TableID  string    `json:"table_id" bson:"table_id"`
	JoinedAt time.Time `json:"joined_at" bson:"joined_at"`
}
