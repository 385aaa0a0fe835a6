package service

import "github.com/google/uuid"

// uuidFromSubject parses a token subject already validated by token.Manager.
func uuidFromSubject(sub string) uuid.UUID {
	id, _ := uuid.Parse(sub)
	return id
}
