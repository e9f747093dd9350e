package repository

import "log/slog"

// Journal is the audit trail of the workflow: submissions and decisions.
type Journal struct {
	SubmissionRepository
	DecisionRepository
}

func NewJournal(db *DB, logger *slog.Logger) *Journal {
	return &Journal{
		SubmissionRepository: NewSubmissionRepository(db, logger),
		DecisionRepository:   NewDecisionRepository(db, logger),
	}
}
