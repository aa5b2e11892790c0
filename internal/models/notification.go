package models

import "time"

// RegistrationMailJob identifies the confirmation mail job on the queue.
const RegistrationMailJob = "RegistrationMail"

// RegistrationMailPayload is the snapshot handed to the notification worker.
type RegistrationMailPayload struct {
	Student Student   `json:"student"`
	EndDate time.Time `json:"end_date"`
	Plan    Plan      `json:"plan"`
}
