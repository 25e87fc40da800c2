package postgres

import (
	repo "github.com/baharkarakas/donation-token/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Entries repo.Entries
	Events  repo.Events
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Entries: &entriesRepo{pool},
		Events:  &eventsRepo{pool},
	}
}
