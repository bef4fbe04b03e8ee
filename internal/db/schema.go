package db

import (
	"fmt"
	"strings"
)

// recordColumns is the select list shared by both backends, in types.Record field order.
const recordColumns = `id, candidate_name, email, role, interview_rounds,
	link_hr, link_tech, link_hiring_manager, added_on,
	round_name, resolved_link, split_status, mail_sent_time, tat_hours, created_at`

const insertColumns = `id, candidate_name, email, role, interview_rounds,
	link_hr, link_tech, link_hiring_manager, added_on,
	round_name, resolved_link, split_status`

const insertColumnCount = 12

// insertRecordSQL returns an INSERT with PostgreSQL placeholders starting at $first.
func insertRecordSQL(first int) string {
	placeholders := make([]string, insertColumnCount)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", first+i)
	}
	return `INSERT INTO interviews (` + insertColumns + `) VALUES (` + strings.Join(placeholders, ", ") + `)`
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS interviews (
	seq                 BIGSERIAL,
	id                  UUID PRIMARY KEY,
	candidate_name      TEXT NOT NULL,
	email               TEXT NOT NULL,
	role                TEXT NOT NULL DEFAULT '',
	interview_rounds    TEXT NOT NULL DEFAULT '',
	link_hr             TEXT NOT NULL DEFAULT '',
	link_tech           TEXT NOT NULL DEFAULT '',
	link_hiring_manager TEXT NOT NULL DEFAULT '',
	added_on            TIMESTAMPTZ NOT NULL,
	round_name          TEXT NOT NULL DEFAULT '',
	resolved_link       TEXT NOT NULL DEFAULT '',
	split_status        TEXT NOT NULL DEFAULT 'unsplit' CHECK (split_status IN ('unsplit', 'split')),
	mail_sent_time      TIMESTAMPTZ,
	tat_hours           DOUBLE PRECISION CHECK (tat_hours >= 0),
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((mail_sent_time IS NULL) = (tat_hours IS NULL)),
	CHECK ((split_status = 'split') = (round_name <> ''))
);
CREATE INDEX IF NOT EXISTS idx_interviews_pending ON interviews (split_status) WHERE mail_sent_time IS NULL;
CREATE INDEX IF NOT EXISTS idx_interviews_email_round ON interviews (email, round_name);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interviews (
	seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
	id                  TEXT NOT NULL UNIQUE,
	candidate_name      TEXT NOT NULL,
	email               TEXT NOT NULL,
	role                TEXT NOT NULL DEFAULT '',
	interview_rounds    TEXT NOT NULL DEFAULT '',
	link_hr             TEXT NOT NULL DEFAULT '',
	link_tech           TEXT NOT NULL DEFAULT '',
	link_hiring_manager TEXT NOT NULL DEFAULT '',
	added_on            TEXT NOT NULL,
	round_name          TEXT NOT NULL DEFAULT '',
	resolved_link       TEXT NOT NULL DEFAULT '',
	split_status        TEXT NOT NULL DEFAULT 'unsplit' CHECK (split_status IN ('unsplit', 'split')),
	mail_sent_time      TEXT,
	tat_hours           REAL CHECK (tat_hours >= 0),
	created_at          TEXT NOT NULL,
	CHECK ((mail_sent_time IS NULL) = (tat_hours IS NULL)),
	CHECK ((split_status = 'split') = (round_name <> ''))
);
CREATE INDEX IF NOT EXISTS idx_interviews_pending ON interviews (split_status, mail_sent_time);
CREATE INDEX IF NOT EXISTS idx_interviews_email_round ON interviews (email, round_name);
`
