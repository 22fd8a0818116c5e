package server

import "fmt"

// migration is one versioned DDL step, applied in order and recorded in
// schema_migrations, mirroring the embedded backend's migrator.go shape
// (see internal/storage/embedded/migrator.go) adapted to pgx's $N
// placeholders and a single-statement-per-Exec model since pgx does not
// need the comment/quote-aware splitting database/sql needed.
type migration struct {
	Version     int
	Description string
	Statement   string
}

// migrations builds the ordered list once the vector dimension and index
// kind are known, since the embedding column width and index method are
// schema-level choices (§4.2, §4.7).
func migrations(cfg Config) []migration {
	indexMethod := "hnsw"
	indexOpts := "(embedding vector_cosine_ops)"
	if cfg.VectorIndexKind == "ivfflat" {
		indexMethod = "ivfflat"
		indexOpts = "(embedding vector_cosine_ops) WITH (lists = 100)"
	}

	return []migration{
		{
			Version:     1,
			Description: "initial schema",
			Statement: `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS projects (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);

CREATE TABLE IF NOT EXISTS chunks (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

CREATE TABLE IF NOT EXISTS graph_entities (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	document_id UUID,
	source_chunk_ids TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE(project_id, name)
);
CREATE INDEX IF NOT EXISTS idx_entities_document ON graph_entities(document_id);
CREATE INDEX IF NOT EXISTS idx_entities_chunks ON graph_entities USING GIN(source_chunk_ids);

CREATE TABLE IF NOT EXISTS graph_relations (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'RELATED_TO',
	description TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	document_id UUID,
	source_chunk_ids TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE(project_id, source, target)
);
CREATE INDEX IF NOT EXISTS idx_relations_document ON graph_relations(document_id);
CREATE INDEX IF NOT EXISTS idx_relations_chunks ON graph_relations USING GIN(source_chunk_ids);

CREATE TABLE IF NOT EXISTS vectors (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding vector(` + fmt.Sprint(cfg.VectorDimension) + `) NOT NULL,
	document_id UUID,
	chunk_index INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_vectors_project ON vectors(project_id);
CREATE INDEX IF NOT EXISTS idx_vectors_project_type ON vectors(project_id, type);
CREATE INDEX IF NOT EXISTS idx_vectors_document ON vectors(document_id);

CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS document_status (
	doc_id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	entity_count INTEGER NOT NULL DEFAULT 0,
	relation_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS extraction_cache (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	cache_type TEXT NOT NULL,
	chunk_id UUID,
	content_hash TEXT NOT NULL,
	result TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE(project_id, cache_type, content_hash)
);
`,
		},
		{
			// Split into its own migration: building an ANN index over an
			// empty table is wasted work and, for ivfflat, fails outright
			// without enough rows to choose cluster centers. Running it
			// after the base schema lets it be skipped/retried independent
			// of table creation.
			Version:     2,
			Description: "vector ann index",
			Statement: `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_indexes WHERE schemaname = current_schema() AND indexname = 'idx_vectors_embedding'
	) THEN
		EXECUTE 'CREATE INDEX idx_vectors_embedding ON vectors USING ` + indexMethod + ` ` + indexOpts + `';
	END IF;
END
$$;
`,
		},
	}
}
