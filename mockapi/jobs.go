package mockapi

import (
	"time"

	"github.com/google/uuid"
)

// Job is a listing served by the jobs endpoints.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Budget      float64   `json:"budget"`
	Currency    string    `json:"currency"`
	HirerID     string    `json:"hirerId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Application is a worker's bid on a job.
type Application struct {
	ID           string    `json:"id"`
	JobID        string    `json:"jobId"`
	ApplicantID  string    `json:"applicantId"`
	CoverLetter  string    `json:"coverLetter"`
	ProposedRate float64   `json:"proposedRate"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func seedJobs(now time.Time, hirerID string) []Job {
	seed := []Job{
		{Title: "Fix leaking kitchen tap", Description: "Replace washer and reseal the mixer tap.", Category: "plumbing", Location: "Accra", Budget: 150},
		{Title: "Rewire two-bedroom flat", Description: "Full rewiring with new consumer unit.", Category: "electrical", Location: "Kumasi", Budget: 2400},
		{Title: "Build fitted wardrobe", Description: "Hardwood wardrobe, 2.4m wide, sliding doors.", Category: "carpentry", Location: "Accra", Budget: 1800},
	}
	for i := range seed {
		seed[i].ID = uuid.NewString()
		seed[i].Currency = "GHS"
		seed[i].HirerID = hirerID
		seed[i].Status = "open"
		seed[i].CreatedAt = now.Add(-time.Duration(i+1) * 24 * time.Hour)
	}
	return seed
}
