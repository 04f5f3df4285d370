package model

import "github.com/google/uuid"

// UUID генерим на стороне приложения: схема должна подниматься и в Postgres, и в SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
