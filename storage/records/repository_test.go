package records

import (
	"context"
	"errors"
	"testing"
)

func TestGetRecordsRejectsOversizedPage(t *testing.T) {
	// The page size guard fires before any database work.
	r := &Repository{}
	if _, err := r.GetRecords(context.Background(), 0, MaxPageSize+1); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("error = %v, want ErrLimitExceeded", err)
	}
}
