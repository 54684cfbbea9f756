// Package detect provides the detection fusion engine for Beacon's distress
// detection system. It defines the Scorer interface (one per signal source),
// the Registry (emotion voters in priority order), and the Engine that fuses
// per-source verdicts into a single DetectionResult.
package detect
