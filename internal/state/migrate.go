package state

import "encoding/json"

// migration transforms a generic envelope from one schema version to the
// next. The table is indexed by the *pre-upgrade* version, per spec §4.1.
type migration func(map[string]any) map[string]any

// migrations holds one entry per supported upgrade step. A version with no
// entry here that is nonetheless below CurrentVersion yields Empty() rather
// than an error (spec §4.1: "a missing migration for a known older version
// yields an empty state").
var migrations = map[int]migration{
	1: migrateV1toV2,
	2: migrateV2toV3,
	3: migrateV3toV4,
}

// migrateV1toV2 introduces the captures map, absent in the original
// session/target-only schema.
func migrateV1toV2(env map[string]any) map[string]any {
	if _, ok := env["captures"]; !ok {
		env["captures"] = map[string]any{}
	}
	if _, ok := env["nextCaptureOrdinal"]; !ok {
		env["nextCaptureOrdinal"] = float64(1)
	}
	env["version"] = float64(2)
	return env
}

// migrateV2toV3 introduces the artifacts map for HAR/pipeline exports.
func migrateV2toV3(env map[string]any) map[string]any {
	if _, ok := env["artifacts"]; !ok {
		env["artifacts"] = map[string]any{}
	}
	if _, ok := env["nextArtifactOrdinal"]; !ok {
		env["nextArtifactOrdinal"] = float64(1)
	}
	env["version"] = float64(3)
	return env
}

// migrateV3toV4 renames the v3 "lastSeen" target timestamp field to the
// current "updatedAt" and drops the deprecated top-level
// "schemaRevision" marker superseded by "version".
func migrateV3toV4(env map[string]any) map[string]any {
	if targets, ok := env["targets"].(map[string]any); ok {
		for key, raw := range targets {
			t, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if v, ok := t["lastSeen"]; ok {
				t["updatedAt"] = v
				delete(t, "lastSeen")
			}
			targets[key] = t
		}
	}
	delete(env, "schemaRevision")
	env["version"] = float64(4)
	return env
}

// migrate applies all applicable migrations in ascending order starting
// from the envelope's current "version" field, returning a SurfwrightState
// stamped with CurrentVersion. Raw is the as-read JSON document.
func migrate(raw []byte) (SurfwrightState, error) {
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		return Empty(), nil
	}

	version := readVersion(env)
	if version > CurrentVersion {
		// Never guess about a document from the future; treat as malformed.
		return Empty(), nil
	}

	for version < CurrentVersion {
		m, ok := migrations[version]
		if !ok {
			return Empty(), nil
		}
		env = m(env)
		version = readVersion(env)
	}

	out, err := json.Marshal(env)
	if err != nil {
		return Empty(), nil
	}

	var s SurfwrightState
	if err := json.Unmarshal(out, &s); err != nil {
		return Empty(), nil
	}
	s.Version = CurrentVersion
	return normalize(s), nil
}

func readVersion(env map[string]any) int {
	v, ok := env["version"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
