package store

import "database/sql"

// All timestamps are stored as naive UTC. The unique index on
// attendance_records backs the application-level duplicate check: two
// concurrent marks for the same student, session and UTC day cannot both
// commit even if both pass the read-then-insert sequence.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	full_name     TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
);

CREATE TABLE IF NOT EXISTS locations (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	radius_m   INTEGER,
	room_no    TEXT,
	floor      INTEGER,
	capacity   INTEGER,
	created_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
);

CREATE TABLE IF NOT EXISTS timetables (
	id            BIGSERIAL PRIMARY KEY,
	division_id   BIGINT NOT NULL,
	teacher_id    BIGINT NOT NULL REFERENCES users(id),
	location_id   BIGINT REFERENCES locations(id),
	batch_id      BIGINT,
	subject       TEXT NOT NULL,
	day_of_week   TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	end_time      TEXT NOT NULL,
	semester      INTEGER NOT NULL,
	academic_year TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
	updated_at    TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
);

CREATE TABLE IF NOT EXISTS student_enrollments (
	id            BIGSERIAL PRIMARY KEY,
	student_id    BIGINT NOT NULL UNIQUE REFERENCES users(id),
	division_id   BIGINT NOT NULL,
	academic_year TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	created_at    TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
);
CREATE INDEX IF NOT EXISTS idx_enrollments_division ON student_enrollments (division_id, status);

CREATE TABLE IF NOT EXISTS verification_codes (
	id           BIGSERIAL PRIMARY KEY,
	timetable_id BIGINT NOT NULL REFERENCES timetables(id),
	kind         TEXT NOT NULL,
	code         TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	expires_at   TIMESTAMP NOT NULL,
	used_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_codes_lookup ON verification_codes (timetable_id, kind, expires_at);

CREATE TABLE IF NOT EXISTS attendance_records (
	id            BIGSERIAL PRIMARY KEY,
	timetable_id  BIGINT NOT NULL REFERENCES timetables(id),
	student_id    BIGINT NOT NULL REFERENCES users(id),
	enrollment_id BIGINT NOT NULL REFERENCES student_enrollments(id),
	teacher_id    BIGINT NOT NULL,
	division_id   BIGINT NOT NULL,
	batch_id      BIGINT,
	location_id   BIGINT,
	marked_at     TIMESTAMP NOT NULL,
	status        TEXT NOT NULL,
	device_info   TEXT,
	created_at    TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
	updated_at    TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
);
CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records (student_id, marked_at);
CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_daily
	ON attendance_records (timetable_id, student_id, (marked_at::date));

CREATE TABLE IF NOT EXISTS audit_logs (
	id          TEXT PRIMARY KEY,
	user_id     BIGINT,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT,
	details     TEXT,
	ip_address  TEXT,
	created_at  TIMESTAMP NOT NULL
);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
