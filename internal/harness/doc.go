// Package harness runs declarative mirroring scenarios.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: append_then_remove
//	description: "An entity pushed on one side can be removed from the other"
//	bind: layers            # layers | map | group
//	layers:
//	  - name: roads
//	  - name: rivers
//	    opacity: 0.5
//	steps:
//	  - op: add_entity
//	    id: parcels
//	  - op: remove_record
//	    id: rivers
//	assertions:
//	  - type: order
//	    ids: [roads, parcels]
//	  - type: trace_count
//	    kind: remove
//	    direction: to_entities
//	    count: 1
//
// # Steps
//
// Entity side: add_entity, insert_entity, remove_entity, set_entity,
// clear_entities. Record side: add_record, insert_record, remove_record,
// set_record, load_records, clear_records, replace_record. Records are
// addressed by the ID of the entity they wrap. unbind detaches the mirror.
//
// After every step the harness checks that record i wraps entity i for
// every position. A broken correspondence fails the scenario.
//
// # Assertion Types
//
//   - order: entity IDs on one or both sides, in order
//   - record_field: a field of the record wrapping an entity
//   - entity_prop: a property of an entity
//   - update_count: update events fired by the record store
//   - trace_count: trace events of a kind, optionally in one direction
//
// # Deterministic Testing
//
// Record IDs come from a sequence generator, entity IDs are layer names and
// the trace is stamped by a logical clock, so identical scenarios produce
// byte-identical canonical traces for golden comparison.
package harness
