package domain

// JobRepository defines the interface for job history persistence
type JobRepository interface {
	// Create creates a new job record
	Create(job *JobRecord) error

	// Update updates an existing job record
	Update(job *JobRecord) error

	// Delete deletes a job record by ID
	Delete(id string) error

	// FindByID finds a job record by ID
	FindByID(id string) (*JobRecord, error)

	// FindAll finds all job records with optional filters, newest first
	FindAll(filters map[string]interface{}) ([]*JobRecord, error)

	// GetStats returns job statistics
	GetStats() (*JobStats, error)

	// MarkInterrupted fails records left non-terminal by a previous run
	MarkInterrupted() (int64, error)
}

// JobStats represents job statistics
type JobStats struct {
	Total       int64 `json:"total"`
	Running     int64 `json:"running"`
	Completed   int64 `json:"completed"`
	Failed      int64 `json:"failed"`
	SpawnFailed int64 `json:"spawn_failed"`
	Cancelled   int64 `json:"cancelled"`
}
