package resultsdb

const formatVersion = "1"

// Store phases recorded in meta.
const (
	phaseGeometry          = "geometry"
	phaseGeometryCommitted = "geometry_committed"
	phaseResultsCommitted  = "results_committed"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS parts (
	id             INTEGER PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	embedded_space TEXT NOT NULL,
	type           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	id      INTEGER PRIMARY KEY,
	part_id INTEGER NOT NULL REFERENCES parts(id),
	label   INTEGER NOT NULL,
	x       REAL NOT NULL,
	y       REAL NOT NULL,
	z       REAL NOT NULL,
	UNIQUE (part_id, label)
);

CREATE TABLE IF NOT EXISTS elements (
	id           INTEGER PRIMARY KEY,
	part_id      INTEGER NOT NULL REFERENCES parts(id),
	label        INTEGER NOT NULL,
	type         TEXT NOT NULL,
	connectivity TEXT NOT NULL,
	UNIQUE (part_id, label)
);

CREATE TABLE IF NOT EXISTS instances (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	part_id INTEGER NOT NULL REFERENCES parts(id)
);

CREATE TABLE IF NOT EXISTS section_categories (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS section_points (
	id          INTEGER PRIMARY KEY,
	category_id INTEGER NOT NULL REFERENCES section_categories(id),
	number      INTEGER NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	domain      INTEGER NOT NULL,
	time_period REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS frames (
	id          INTEGER PRIMARY KEY,
	step_id     INTEGER NOT NULL REFERENCES steps(id),
	increment   INTEGER NOT NULL,
	value       REAL NOT NULL,
	description TEXT NOT NULL,
	UNIQUE (step_id, increment)
);

CREATE TABLE IF NOT EXISTS field_outputs (
	id          INTEGER PRIMARY KEY,
	frame_id    INTEGER NOT NULL REFERENCES frames(id),
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	kind        TEXT NOT NULL,
	UNIQUE (frame_id, name)
);

CREATE TABLE IF NOT EXISTS field_values (
	id               INTEGER PRIMARY KEY,
	field_output_id  INTEGER NOT NULL REFERENCES field_outputs(id),
	instance_id      INTEGER NOT NULL REFERENCES instances(id),
	position         INTEGER NOT NULL,
	section_point_id INTEGER REFERENCES section_points(id),
	node_label       INTEGER,
	element_label    INTEGER,
	data             TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_field_values_entity ON field_values (
	field_output_id, instance_id, position,
	IFNULL(section_point_id, 0), IFNULL(node_label, -1), IFNULL(element_label, -1)
);
`
