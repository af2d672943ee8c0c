package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS cities (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name        TEXT NOT NULL,
		state       TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS stations (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		code        TEXT NOT NULL,
		name        TEXT,
		city_id     UUID NOT NULL REFERENCES cities(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stations_code ON stations(code);`,
	`CREATE TABLE IF NOT EXISTS cameras (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		code        TEXT NOT NULL,
		station_id  UUID NOT NULL REFERENCES stations(id),
		city_id     UUID NOT NULL REFERENCES cities(id),
		street      TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cameras_station_code ON cameras(station_id, code);`,
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name          TEXT NOT NULL,
		email         TEXT,
		phone         TEXT,
		password_hash TEXT,
		role          TEXT,
		city_id       UUID REFERENCES cities(id),
		group_id      TEXT,
		detected_at   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_city_group ON users(city_id, group_id);`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate       TEXT NOT NULL,
		type        SMALLINT NOT NULL CHECK (type BETWEEN 0 AND 5),
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_by  UUID NOT NULL REFERENCES users(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_plate_type_active ON alerts(plate, type, active);`,
	`CREATE TABLE IF NOT EXISTS detections (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		station         TEXT NOT NULL,
		camera          TEXT NOT NULL,
		plate           TEXT NOT NULL,
		date            TEXT NOT NULL,
		time            TEXT NOT NULL,
		color           TEXT,
		original_color  TEXT,
		vehicle_image   TEXT NOT NULL,
		plate_image     TEXT NOT NULL,
		alert           SMALLINT NOT NULL DEFAULT 0 CHECK (alert BETWEEN 0 AND 5),
		alert_label     TEXT,
		street          TEXT,
		city_id         UUID REFERENCES cities(id),
		city_label      TEXT,
		model           TEXT,
		renavam_id      TEXT,
		owner           TEXT,
		detected_at     TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_detections_plate ON detections(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_detections_camera_detected_at ON detections(camera, detected_at);`,
	`CREATE INDEX IF NOT EXISTS idx_detections_station_camera_alert ON detections(station, camera, alert);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id       UUID NOT NULL REFERENCES users(id),
		detection_id  UUID NOT NULL REFERENCES detections(id) ON DELETE CASCADE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		action      TEXT NOT NULL,
		description TEXT,
		user_id     UUID,
		metadata    JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
