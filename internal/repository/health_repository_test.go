package repository

import (
	"context"
	"testing"
)

func TestPingDB(t *testing.T) {
	repo := NewHealthRepository(newTestDB(t))
	if err := repo.PingDB(context.Background()); err != nil {
		t.Errorf("PingDB() error = %v", err)
	}
}
