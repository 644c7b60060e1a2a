package store

const (
	enqueueRequest = `
		INSERT INTO sync_queue (
			op_id,
			entity,
			action,
			entity_id,
			payload,
			force_push,
			max_retries,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	dequeueBatch = `
		SELECT
			id,
			op_id,
			entity,
			action,
			entity_id,
			payload,
			force_push,
			retry_count,
			max_retries,
			failed,
			created_at
		FROM sync_queue
		WHERE failed = 0
		  AND retry_count < max_retries
		ORDER BY id ASC
		LIMIT $1;`

	getAllRequests = `
		SELECT
			id,
			op_id,
			entity,
			action,
			entity_id,
			payload,
			force_push,
			retry_count,
			max_retries,
			failed,
			created_at
		FROM sync_queue
		ORDER BY id ASC;`

	ackRequest = `
		DELETE FROM sync_queue
		WHERE op_id = $1;`

	bumpRetry = `
		UPDATE sync_queue
		SET retry_count = retry_count + 1
		WHERE op_id = $1;`

	markRequestFailed = `
		UPDATE sync_queue
		SET failed = 1
		WHERE op_id = $1;`

	updateRequestPayload = `
		UPDATE sync_queue
		SET action = $1, payload = $2
		WHERE op_id = $3;`

	queueSize = `
		SELECT COUNT(*)
		FROM sync_queue
		WHERE failed = 0
		  AND retry_count < max_retries;`

	insertLedgerEntry = `
		INSERT INTO sync_ledger (
			op_id,
			entity,
			action,
			entity_id,
			payload,
			client_id,
			client_updated_at,
			status,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	replaceInFlightEntry = `
		UPDATE sync_ledger SET
			action            = $1,
			payload           = $2,
			client_updated_at = $3,
			status            = 'pending',
			conflict_type     = NULL,
			server_data       = NULL,
			conflict_message  = NULL,
			updated_at        = $4
		WHERE op_id = $5;`

	updateLedgerStatus = `
		UPDATE sync_ledger SET
			status           = $1,
			conflict_type    = $2,
			server_data      = $3,
			conflict_message = $4,
			updated_at       = $5
		WHERE op_id = $6;`

	selectLedgerEntry = `
		SELECT
			id,
			op_id,
			entity,
			action,
			entity_id,
			payload,
			client_id,
			client_updated_at,
			status,
			conflict_type,
			server_data,
			conflict_message,
			created_at,
			updated_at
		FROM sync_ledger
		WHERE op_id = $1;`

	selectInFlightEntry = `
		SELECT
			id,
			op_id,
			entity,
			action,
			entity_id,
			payload,
			client_id,
			client_updated_at,
			status,
			conflict_type,
			server_data,
			conflict_message,
			created_at,
			updated_at
		FROM sync_ledger
		WHERE entity = $1
		  AND entity_id = $2
		  AND status IN ('pending', 'conflict');`

	listLedgerByStatus = `
		SELECT
			id,
			op_id,
			entity,
			action,
			entity_id,
			payload,
			client_id,
			client_updated_at,
			status,
			conflict_type,
			server_data,
			conflict_message,
			created_at,
			updated_at
		FROM sync_ledger
		WHERE status = $1
		ORDER BY id ASC;`

	countLedgerByStatus = `
		SELECT status, COUNT(*)
		FROM sync_ledger
		GROUP BY status;`

	applyMirrorEntry = `
		INSERT INTO entity_mirror (entity, entity_id, data, updated_at, deleted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity, entity_id) DO UPDATE SET
			data       = excluded.data,
			updated_at = excluded.updated_at,
			deleted    = excluded.deleted;`

	selectMirrorEntry = `
		SELECT entity, entity_id, data, updated_at, deleted
		FROM entity_mirror
		WHERE entity = $1 AND entity_id = $2;`

	rekeyMirrorEntry = `
		UPDATE entity_mirror
		SET entity_id = $1
		WHERE entity = $2 AND entity_id = $3;`

	selectCheckpoint = `
		SELECT cursor
		FROM sync_checkpoint
		WHERE id = 1;`

	updateCheckpoint = `
		UPDATE sync_checkpoint
		SET cursor = $1, updated_at = $2
		WHERE id = 1;`

	putIDMapping = `
		INSERT INTO id_map (entity, local_id, server_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity, local_id) DO UPDATE SET
			server_id = excluded.server_id;`

	resolveIDMapping = `
		SELECT server_id
		FROM id_map
		WHERE entity = $1 AND local_id = $2;`
)
