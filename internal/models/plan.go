package models

import "time"

// Plan is a pricing template. Price is expressed in the smallest currency
// unit per month and Duration in whole months.
type Plan struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Price     int64     `db:"price" json:"price"`
	Duration  int       `db:"duration" json:"duration"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TotalPrice is the flat price of a registration on this plan.
func (p Plan) TotalPrice() int64 {
	return p.Price * int64(p.Duration)
}
