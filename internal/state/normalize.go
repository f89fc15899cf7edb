package state

// normalize applies the read-time hygiene rules from spec §4.1: unknown
// fields are already dropped by encoding/json itself (no inline map[string]any
// passthrough is used), so normalize's remaining job is to drop entries whose
// map key disagrees with their own id field, and to ensure every map is
// non-nil so callers never have to special-case a nil map.
func normalize(s SurfwrightState) SurfwrightState {
	if s.Sessions == nil {
		s.Sessions = map[string]Session{}
	}
	if s.Targets == nil {
		s.Targets = map[string]Target{}
	}
	if s.Captures == nil {
		s.Captures = map[string]NetworkCapture{}
	}
	if s.Artifacts == nil {
		s.Artifacts = map[string]NetworkArtifact{}
	}

	for id, sess := range s.Sessions {
		if sess.SessionID != id {
			delete(s.Sessions, id)
		}
	}
	for id, tgt := range s.Targets {
		if tgt.TargetID != id {
			delete(s.Targets, id)
		}
	}
	for id, cap := range s.Captures {
		if cap.CaptureID != id {
			delete(s.Captures, id)
		}
	}
	for id, art := range s.Artifacts {
		if art.ArtifactID != id {
			delete(s.Artifacts, id)
		}
	}

	if s.Version == 0 {
		s.Version = CurrentVersion
	}
	if s.NextSessionOrdinal < 1 {
		s.NextSessionOrdinal = 1
	}
	if s.NextCaptureOrdinal < 1 {
		s.NextCaptureOrdinal = 1
	}
	if s.NextArtifactOrdinal < 1 {
		s.NextArtifactOrdinal = 1
	}

	return s
}
