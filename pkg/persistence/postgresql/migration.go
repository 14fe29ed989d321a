package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow contexts, one row per run
			CREATE TABLE workflow_contexts (
				workflow_id VARCHAR(255) PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL,
				execution_id VARCHAR(255) NOT NULL,
				state VARCHAR(50) NOT NULL CHECK (state IN ('INITIATED', 'IN_PROGRESS', 'SUSPENDED', 'COMPLETED', 'FAILED', 'CANCELLED')),
				steps JSONB NOT NULL DEFAULT '[]',
				current_step INTEGER,
				global_variables JSONB NOT NULL DEFAULT '{}',
				metadata JSONB NOT NULL DEFAULT '{}',
				start_time TIMESTAMP WITH TIME ZONE NOT NULL,
				end_time TIMESTAMP WITH TIME ZONE,
				correlation_id VARCHAR(255) NOT NULL DEFAULT '',
				initiated_by VARCHAR(255) NOT NULL DEFAULT '',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflow_contexts_state ON workflow_contexts(state);
			CREATE INDEX idx_workflow_contexts_flow_id ON workflow_contexts(flow_id);

			-- Append-only audit trail
			CREATE TABLE workflow_events (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				flow_id VARCHAR(255) NOT NULL,
				event_type VARCHAR(50) NOT NULL,
				step_id VARCHAR(255) NOT NULL DEFAULT '',
				step_name VARCHAR(255) NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				user_id VARCHAR(255) NOT NULL DEFAULT '',
				source VARCHAR(255) NOT NULL DEFAULT '',
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_events_workflow_id ON workflow_events(workflow_id, timestamp);
		`,
		2: `
			-- Flow definitions
			CREATE TABLE flow_definitions (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				source_adapter_id VARCHAR(255) NOT NULL,
				target_adapter_id VARCHAR(255) NOT NULL,
				field_mappings JSONB NOT NULL DEFAULT '[]',
				output_schema JSONB,
				schedule VARCHAR(255) NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
