package store

const (
	insertAppliedOp = `
		INSERT INTO applied_ops (op_id, client_id, entity, entity_id)
		VALUES ($1, $2, $3, $4);`

	selectEntityForUpdate = `
		SELECT data, version, updated_at, deleted, finalized
		FROM entities
		WHERE entity = $1 AND entity_id = $2
		FOR UPDATE;`

	upsertEntity = `
		INSERT INTO entities (entity, entity_id, data, version, updated_at, deleted)
		VALUES ($1, $2, $3, 1, NOW(), FALSE)
		ON CONFLICT (entity, entity_id) DO UPDATE SET
			data       = excluded.data,
			version    = entities.version + 1,
			updated_at = NOW(),
			deleted    = FALSE;`

	softDeleteEntity = `
		UPDATE entities
		SET deleted = TRUE, version = version + 1, updated_at = NOW()
		WHERE entity = $1 AND entity_id = $2;`

	insertChangeLog = `
		INSERT INTO change_log (entity, entity_id, action, data, updated_at, deleted)
		VALUES ($1, $2, $3, $4, NOW(), $5);`
)
