package embedded

// Migrations is the ordered migration list for the embedded backend,
// defining the embedded backend's table layout. schema_version itself is
// created by migration 1 — CurrentVersion tolerates its absence before
// that runs.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Script: `
CREATE TABLE schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL
);

CREATE TABLE projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_documents_project ON documents(project_id);

CREATE TABLE chunks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX idx_chunks_document ON chunks(document_id);

CREATE TABLE graph_entities (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	document_id TEXT,
	source_chunk_ids TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(project_id, name)
);
CREATE INDEX idx_entities_document ON graph_entities(document_id);

CREATE TABLE graph_relations (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'RELATED_TO',
	description TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	weight REAL NOT NULL DEFAULT 0,
	document_id TEXT,
	source_chunk_ids TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(project_id, source, target)
);
CREATE INDEX idx_relations_document ON graph_relations(document_id);

CREATE TABLE vectors (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	vector BLOB NOT NULL,
	document_id TEXT,
	chunk_index INTEGER,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_vectors_project ON vectors(project_id);
CREATE INDEX idx_vectors_type ON vectors(type);
CREATE INDEX idx_vectors_project_type ON vectors(project_id, type);
CREATE INDEX idx_vectors_document ON vectors(document_id);

CREATE TABLE kv_store (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE document_status (
	doc_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	entity_count INTEGER NOT NULL DEFAULT 0,
	relation_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE extraction_cache (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	cache_type TEXT NOT NULL,
	chunk_id TEXT,
	content_hash TEXT NOT NULL,
	result TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(project_id, cache_type, content_hash)
);
`,
	},
}
