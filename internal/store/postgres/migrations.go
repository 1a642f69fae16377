package postgres

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS principals (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			public_key TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Membership is immutable after creation; position preserves the
		// creation-time ordering of the member set.
		`CREATE TABLE IF NOT EXISTS conversation_members (
			conversation_id VARCHAR(64) NOT NULL REFERENCES conversations(id),
			principal_id VARCHAR(64) NOT NULL REFERENCES principals(id),
			position INTEGER NOT NULL,
			PRIMARY KEY (conversation_id, principal_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(64) PRIMARY KEY,
			conversation_id VARCHAR(64) NOT NULL REFERENCES conversations(id),
			sender_id VARCHAR(64) NOT NULL REFERENCES principals(id),
			envelope JSONB NOT NULL,
			message_type VARCHAR(32) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS message_statuses (
			message_id VARCHAR(64) NOT NULL REFERENCES messages(id),
			principal_id VARCHAR(64) NOT NULL REFERENCES principals(id),
			status VARCHAR(16) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (message_id, principal_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
