package postgres

import (
	"context"
	"testing"
)

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
