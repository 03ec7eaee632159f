// Package compiler turns CUE layer definitions into ir.LayerSpec trees.
//
// A definitions file looks like:
//
//	layers: {
//		osm: {title: "OpenStreetMap"}
//		overlays: {
//			title: "Overlays"
//			layers: roads: {title: "Roads", opacity: 0.5}
//		}
//	}
//
// Values are unified with the embedded schema, so defaults (visible true,
// opacity 1) are applied and unknown fields are rejected. Layers keep their
// declaration order.
package compiler
