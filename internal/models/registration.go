package models

import "time"

// Registration links a student to a plan for a computed validity window.
type Registration struct {
	ID        int64     `db:"id" json:"id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	PlanID    int64     `db:"plan_id" json:"plan_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Price     int64     `db:"price" json:"price"`
	Active    bool      `db:"-" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsActiveAt reports whether the validity window covers ts.
func (r Registration) IsActiveAt(ts time.Time) bool {
	return !ts.Before(r.StartDate) && ts.Before(r.EndDate)
}

// RegistrationPlan is the plan projection embedded in registration reads.
// Price and Duration are only populated on single registration reads.
type RegistrationPlan struct {
	ID       int64  `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Price    *int64 `db:"price" json:"price,omitempty"`
	Duration *int   `db:"duration" json:"duration,omitempty"`
}

// RegistrationStudent is the student projection embedded in registration reads.
type RegistrationStudent struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// RegistrationDetail is a registration with its plan and student.
type RegistrationDetail struct {
	ID        int64               `db:"id" json:"id"`
	StartDate time.Time           `db:"start_date" json:"start_date"`
	EndDate   time.Time           `db:"end_date" json:"end_date"`
	Price     int64               `db:"price" json:"price"`
	Active    bool                `db:"-" json:"active"`
	Plan      RegistrationPlan    `db:"plan" json:"plan"`
	Student   RegistrationStudent `db:"student" json:"student"`
}

// RegistrationFilter provides paging for listing registrations.
type RegistrationFilter struct {
	Page     int
	PageSize int
}
