package postgres

import "strings"

const (
	adminID   = "0b6f8a52-3c1e-4d7a-9f21-5e8c7d6b4a30"
	userID1   = "1d2e3f40-5a6b-4c7d-8e9f-0a1b2c3d4e51"
	userID2   = "2e3f4051-6b7c-4d8e-9fa0-1b2c3d4e5f62"
	eventID0  = "3f405162-7c8d-4e9f-a0b1-2c3d4e5f6a70"
	eventID1  = "40516273-8d9e-4fa0-b1c2-3d4e5f6a7b81"
	eventID2  = "51627384-9eaf-40b1-c2d3-4e5f6a7b8c92"
	eventID3  = "62738495-afb0-41c2-d3e4-5f6a7b8c9da3"
	reviewID1 = "738495a6-b0c1-42d3-e4f5-6a7b8c9daeb4"
	reviewID2 = "8495a6b7-c1d2-43e4-f5a6-7b8c9daebfc5"
	missingID = "95a6b7c8-d2e3-44f5-a6b7-8c9daebfc0d6"
)

// pgArray renders ids the way Postgres returns a text array.
func pgArray(ids ...string) string {
	return "{" + strings.Join(ids, ",") + "}"
}
