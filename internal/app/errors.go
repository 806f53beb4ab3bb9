package service

import (
	"errors"
	"fmt"

	"github.com/okian/spread/internal/domain/model"
)

// Sentinel errors returned by the service.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrUnknownStage       = errors.New("unknown search stage")
	ErrNoRun              = errors.New("no training run yet")
)

// DuplicateMatchError lists matches already in the ledger. It wraps
// model.ErrDataIntegrity.
type DuplicateMatchError struct {
	Keys []model.MatchKey
}

func (e *DuplicateMatchError) Error() string {
	return fmt.Sprintf("%d matches already ingested, first %s", len(e.Keys), e.Keys[0])
}

func (e *DuplicateMatchError) Unwrap() error { return model.ErrDataIntegrity }
